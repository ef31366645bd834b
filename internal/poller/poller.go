// Package poller implements the bounded completion poll against the backend
// crawler status endpoint.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Defaults give a hard worst-case wait of about two minutes, acceptable for a
// single interactive request.
const (
	DefaultMaxAttempts    = 60
	DefaultInterval       = 2 * time.Second
	DefaultHeartbeatEvery = 5
)

// StatusFunc reports the backend crawler's state. An error means the check
// was indeterminate; the poll continues and the tick still counts toward the
// attempt budget.
type StatusFunc func(ctx context.Context) (xhs.JobStatus, error)

// SleepFunc suspends between ticks. Injected so tests can simulate elapsed
// ticks without real waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

// HeartbeatFunc receives the zero-based tick index of each heartbeat.
type HeartbeatFunc func(tick int)

// Config parameterizes the poll strategy. Zero values fall back to defaults.
type Config struct {
	MaxAttempts    int
	Interval       time.Duration
	HeartbeatEvery int
}

// Poller drives a fixed-interval status poll. No adaptive backoff: the tick
// budget is the only abort mechanism.
type Poller struct {
	cfg    Config
	status StatusFunc
	sleep  SleepFunc
	logger *zap.Logger
}

// New constructs a Poller. A nil sleep uses a context-aware timer.
func New(cfg Config, status StatusFunc, sleep SleepFunc, logger *zap.Logger) *Poller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = DefaultHeartbeatEvery
	}
	if sleep == nil {
		sleep = sleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{cfg: cfg, status: status, sleep: sleep, logger: logger}
}

// Wait blocks until the backend reports idle or the attempt budget runs out.
// Each tick sleeps, checks status, and short-circuits on idle before any
// heartbeat fires, so a run going idle on a heartbeat tick emits no trailing
// heartbeat. After a terminal result no further status call is issued.
func (p *Poller) Wait(ctx context.Context, onHeartbeat HeartbeatFunc) error {
	for i := 0; i < p.cfg.MaxAttempts; i++ {
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
		status, err := p.status(ctx)
		switch {
		case err != nil:
			// Indeterminate tick: keep polling, the budget bounds us.
			p.logger.Warn("status check failed", zap.Int("tick", i), zap.Error(err))
		case status == xhs.JobStatusIdle:
			return nil
		}
		if i%p.cfg.HeartbeatEvery == 0 && onHeartbeat != nil {
			onHeartbeat(i)
		}
	}
	return xhs.Timeoutf("crawler did not finish within %d checks", p.cfg.MaxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
