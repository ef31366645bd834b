// Package progress defines the ordered event log emitted by a crawl run and
// consumed by the presentation layer.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the run milestone represented by an Event.
type Stage string

// Run lifecycle stages, in the order a successful run emits them.
const (
	StageRunStart      Stage = "RUN_START"
	StageValidate      Stage = "VALIDATE"
	StageJobSubmit     Stage = "JOB_SUBMIT"
	StagePollWait      Stage = "POLL_WAIT"
	StagePollHeartbeat Stage = "POLL_HEARTBEAT"
	StageJobDone       Stage = "JOB_DONE"
	StageArtifactFetch Stage = "ARTIFACT_FETCH"
	StageRecordMatch   Stage = "RECORD_MATCH"
	StageFieldCreate   Stage = "FIELD_CREATE"
	StageFieldWrite    Stage = "FIELD_WRITE"
	StageRunDone       Stage = "RUN_DONE"
	StageRunError      Stage = "RUN_ERROR"
)

// Event is one entry in a run's append-only progress log.
type Event struct {
	// RunID identifies the orchestration run that emitted the event.
	RunID uuid.UUID
	// TS is the timestamp recorded by the emitter; entries are monotonic
	// within a run because the run is single-threaded.
	TS time.Time
	// Stage is the milestone reached.
	Stage Stage
	// Note carries low-volume human-readable context (field name, error
	// text, truncated URL).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageValidate, StageJobSubmit, StagePollWait,
		StagePollHeartbeat, StageJobDone, StageArtifactFetch, StageRecordMatch,
		StageFieldCreate, StageFieldWrite, StageRunDone, StageRunError:
		return nil
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
}

// Line renders the event the way the plugin console displays it.
func (e Event) Line() string {
	if e.Note == "" {
		return fmt.Sprintf("[%s] %s", e.TS.Format("15:04:05"), e.Stage)
	}
	return fmt.Sprintf("[%s] %s %s", e.TS.Format("15:04:05"), e.Stage, e.Note)
}
