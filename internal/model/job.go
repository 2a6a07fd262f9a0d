package model

import (
	"fmt"
	"time"
)

// JobState represents the lifecycle state of an analysis job.
type JobState string

const (
	JobStatePending JobState = "pending"
	JobStateRunning JobState = "running"
	JobStateSuccess JobState = "success"
	JobStateFailure JobState = "failure"
)

// Terminal reports whether the state is final. Terminal states are immutable;
// no job leaves them.
func (s JobState) Terminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// Progress tracks how far a job has advanced through its pipeline. It is
// replaced as a whole on every update so a concurrent status read never sees
// a torn step/label pair. TotalSteps is fixed at job creation from the
// selected pipeline and never changes mid-run.
type Progress struct {
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	Label       string `json:"label"`
}

// Percentage returns completion as an integer percentage.
func (p Progress) Percentage() int {
	if p.TotalSteps <= 0 {
		return 0
	}
	return p.CurrentStep * 100 / p.TotalSteps
}

// JobError identifies which stage of a job hard-failed and why, with enough
// structure that a status query can diagnose the failure without logs.
type JobError struct {
	Stage  string `json:"stage"`
	Source string `json:"source,omitempty"`
	Cause  string `json:"cause"`
}

func (e *JobError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("stage %s: source %s: %s", e.Stage, e.Source, e.Cause)
	}
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Cause)
}

// JobRecord is the job store entry for one analysis job. Mutated only by the
// orchestrator; status queries read snapshot copies.
type JobRecord struct {
	ID        string          `json:"id"`
	Identity  CompanyIdentity `json:"identity"`
	Tier      AnalysisTier    `json:"tier"`
	State     JobState        `json:"state"`
	Progress  Progress        `json:"progress"`
	Error     *JobError       `json:"error,omitempty"`
	ResultRef string          `json:"result_ref,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
