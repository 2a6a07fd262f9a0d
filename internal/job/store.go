// Package job tracks analysis jobs from submission to terminal state and
// runs the per-tier pipeline behind the async submit surface.
package job

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/model"
)

var (
	// ErrNotFound is returned when no job matches the given ID.
	ErrNotFound = eris.New("job: not found")

	// ErrActiveExists is returned by Create when a non-terminal job with the
	// same dedup key already exists. The caller attaches to that job instead.
	ErrActiveExists = eris.New("job: active job exists for key")

	// ErrNotClaimable is returned by Claim when the job is not pending.
	ErrNotClaimable = eris.New("job: not claimable")

	// ErrTerminal is returned when an update targets a job already in a
	// terminal state. Terminal states are immutable.
	ErrTerminal = eris.New("job: already terminal")
)

// Store tracks job records. Implementations must make Create atomic with
// respect to the active-key check, and Claim a compare-and-set from pending
// to running, so concurrent submits of the same work converge on one job.
type Store interface {
	// Create registers a new pending job. If another non-terminal job holds
	// the same dedup key it returns ErrActiveExists and creates nothing.
	Create(ctx context.Context, rec *model.JobRecord) error

	// Claim transitions a pending job to running.
	Claim(ctx context.Context, id string) error

	// UpdateProgress replaces the progress snapshot of a running job.
	UpdateProgress(ctx context.Context, id string, p model.Progress) error

	// Complete marks a job successful and records its report reference.
	Complete(ctx context.Context, id, resultRef string) error

	// Fail marks a job failed with the structured cause.
	Fail(ctx context.Context, id string, jerr *model.JobError) error

	// Get returns a snapshot copy of a job record.
	Get(ctx context.Context, id string) (*model.JobRecord, error)

	// FindActive returns the non-terminal job for a dedup key, or ErrNotFound.
	FindActive(ctx context.Context, dedupKey string) (*model.JobRecord, error)

	// Evict removes terminal jobs whose last update is older than the cutoff
	// and returns how many were removed. Active jobs are never evicted.
	Evict(ctx context.Context, olderThan time.Duration) (int, error)
}
