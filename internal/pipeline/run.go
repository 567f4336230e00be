package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/recastvideo/recast/internal/segment"
	"github.com/recastvideo/recast/internal/timeutil"
)

// RunStatus is the lifecycle state of a processing run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StageTimings records wall-clock seconds spent in each pipeline stage.
// Stages are fixed fields rather than a name-keyed map so a missing or
// misspelled stage cannot slip through.
type StageTimings struct {
	Stabilize  float64 `json:"stabilize_seconds"`
	Plan       float64 `json:"plan_seconds"`
	Background float64 `json:"background_seconds"`
	Segments   float64 `json:"segments_seconds"`
	Stitch     float64 `json:"stitch_seconds"`
	Reapply    float64 `json:"reapply_seconds"`
}

// RunRecord is the bookkeeping record for one processing run.
type RunRecord struct {
	RunID          string       `json:"run_id"`
	Source         string       `json:"source,omitempty"`
	Status         RunStatus    `json:"status"`
	TotalFrames    int          `json:"total_frames"`
	DegradedFrames int          `json:"degraded_frames"` // frames passed through due to missing detection/synthesis
	Timings        StageTimings `json:"timings"`
	Error          string       `json:"error,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`

	// Diagnostics captured during the run for reporting. Not persisted.
	Motion        []float64         `json:"motion,omitempty"`
	Segments      []segment.Segment `json:"segments,omitempty"`
	LeftContacts  []bool            `json:"left_contacts,omitempty"`
	RightContacts []bool            `json:"right_contacts,omitempty"`
}

// newRunRecord starts a run record with a fresh ID.
func newRunRecord(source string, totalFrames int) *RunRecord {
	return &RunRecord{
		RunID:       uuid.NewString(),
		Source:      source,
		Status:      RunRunning,
		TotalFrames: totalFrames,
		StartedAt:   time.Now().UTC(),
	}
}

// finish stamps the record's terminal state.
func (r *RunRecord) finish(status RunStatus, errMsg string) {
	now := time.Now().UTC()
	r.Status = status
	r.Error = errMsg
	r.CompletedAt = &now
}

// RunStore persists run records. The pipeline works without one; a nil
// store keeps records in memory only.
type RunStore interface {
	InsertRun(rec *RunRecord) error
	UpdateRun(rec *RunRecord) error
}

// stopwatch measures one stage duration against an injectable clock.
type stopwatch struct {
	clock timeutil.Clock
	start time.Time
}

func startStopwatch(clock timeutil.Clock) stopwatch {
	return stopwatch{clock: clock, start: clock.Now()}
}

func (s stopwatch) seconds() float64 { return s.clock.Since(s.start).Seconds() }
