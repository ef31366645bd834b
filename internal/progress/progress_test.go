package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one second per Now call so orderings are visible.
type tickingClock struct {
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestRecorderStampsAndOrders(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	log := NewLog()
	clock := &tickingClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rec := NewRecorder(id, clock, log)

	rec.Emit(StageRunStart, "")
	rec.Emit(StageJobSubmit, "job accepted")
	rec.Emit(StageRunDone, "")

	events := log.Events()
	require.Len(t, events, 3)
	require.Equal(t, StageRunStart, events[0].Stage)
	require.Equal(t, StageJobSubmit, events[1].Stage)
	require.Equal(t, StageRunDone, events[2].Stage)
	for _, evt := range events {
		require.Equal(t, id, evt.RunID)
	}
	require.True(t, events[0].TS.Before(events[1].TS))
	require.True(t, events[1].TS.Before(events[2].TS))
}

func TestRecorderDropsInvalidStage(t *testing.T) {
	t.Parallel()

	log := NewLog()
	rec := NewRecorder(uuid.New(), &tickingClock{now: time.Now()}, log)
	rec.Emit(Stage("BOGUS"), "")
	require.Empty(t, log.Events())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := Event{RunID: uuid.New(), TS: time.Now(), Stage: StagePollHeartbeat}
	require.NoError(t, valid.Validate())

	require.Error(t, Event{TS: time.Now(), Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: uuid.New(), Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: uuid.New(), TS: time.Now(), Stage: "NOPE"}.Validate())
}

func TestLogLines(t *testing.T) {
	t.Parallel()

	log := NewLog()
	ts := time.Date(2026, 3, 1, 9, 30, 15, 0, time.UTC)
	log.Consume(Event{RunID: uuid.New(), TS: ts, Stage: StageFieldWrite, Note: "点赞数"})

	lines := log.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, "[09:30:15] FIELD_WRITE 点赞数", lines[0])

	log.Reset()
	require.Empty(t, log.Lines())
}
