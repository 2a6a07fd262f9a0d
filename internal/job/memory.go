package job

import (
	"context"
	"sync"
	"time"

	"github.com/insightforge/company-intel/internal/model"
)

// MemoryStore is the in-process job store. Job records are transient by
// design; only completed reports outlive the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.JobRecord
}

// NewMemoryStore creates an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.JobRecord)}
}

func (s *MemoryStore) Create(_ context.Context, rec *model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.Identity.DedupKey(rec.Tier)
	for _, j := range s.jobs {
		if !j.State.Terminal() && j.Identity.DedupKey(j.Tier) == key {
			return ErrActiveExists
		}
	}

	cp := *rec
	now := time.Now()
	cp.State = model.JobStatePending
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.jobs[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State != model.JobStatePending {
		return ErrNotClaimable
	}
	j.State = model.JobStateRunning
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, id string, p model.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State.Terminal() {
		return ErrTerminal
	}
	j.Progress = p
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id, resultRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State.Terminal() {
		return ErrTerminal
	}
	j.State = model.JobStateSuccess
	j.ResultRef = resultRef
	j.Progress.CurrentStep = j.Progress.TotalSteps
	j.Progress.Label = "Complete"
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Fail(_ context.Context, id string, jerr *model.JobError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.State.Terminal() {
		return ErrTerminal
	}
	j.State = model.JobStateFailure
	j.Error = jerr
	j.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) FindActive(_ context.Context, dedupKey string) (*model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, j := range s.jobs {
		if !j.State.Terminal() && j.Identity.DedupKey(j.Tier) == dedupKey {
			cp := *j
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Evict(_ context.Context, olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, j := range s.jobs {
		if j.State.Terminal() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}
