package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sink receives run events in emission order. The run is single-threaded
// cooperative, so delivery is synchronous; sinks must not block.
type Sink interface {
	Consume(evt Event)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Recorder stamps events for one run and fans them out to its sinks.
// Invalid events are dropped.
type Recorder struct {
	runID uuid.UUID
	clock Clock
	sinks []Sink
}

// NewRecorder binds a run id and clock to the given sinks.
func NewRecorder(runID uuid.UUID, clock Clock, sinks ...Sink) *Recorder {
	return &Recorder{runID: runID, clock: clock, sinks: sinks}
}

// Emit appends one event to the run log.
func (r *Recorder) Emit(stage Stage, note string) {
	evt := Event{RunID: r.runID, TS: r.clock.Now(), Stage: stage, Note: note}
	if evt.Validate() != nil {
		return
	}
	for _, s := range r.sinks {
		s.Consume(evt)
	}
}

// LogSink mirrors run events into the structured log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event with structured fields.
func (s *LogSink) Consume(evt Event) {
	s.logger.Info("run progress",
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
		zap.String("note", evt.Note),
	)
}

// Log is an append-only in-memory event sequence. The API layer snapshots it
// to show the most recent run's console output.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Consume appends the event.
func (l *Log) Consume(evt Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

// Reset clears the log; called at the start of each run.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Events returns a snapshot of the log in emission order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Lines renders the snapshot as console lines.
func (l *Log) Lines() []string {
	events := l.Events()
	lines := make([]string, len(events))
	for i, evt := range events {
		lines[i] = evt.Line()
	}
	return lines
}
