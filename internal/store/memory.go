package store

import (
	"context"
	"sort"
	"sync"

	"github.com/insightforge/company-intel/internal/model"
)

// MemoryStore is an in-process Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []model.Report
	byJob   map[string]bool
}

// NewMemory creates an empty in-memory report store.
func NewMemory() *MemoryStore {
	return &MemoryStore{byJob: make(map[string]bool)}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) PutReport(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byJob[r.JobID] {
		return nil
	}
	s.byJob[r.JobID] = true
	s.reports = append(s.reports, *r)
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, dedupKey string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *model.Report
	for i := range s.reports {
		r := &s.reports[i]
		if r.Identity.DedupKey(r.Tier) != dedupKey {
			continue
		}
		if newest == nil || r.CompletedAt.After(newest.CompletedAt) {
			newest = r
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

func (s *MemoryStore) GetReportByID(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.reports {
		if s.reports[i].ID == id {
			cp := s.reports[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListReports(_ context.Context, filter ReportFilter) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Report
	for _, r := range s.reports {
		if filter.Tier != "" && r.Tier != filter.Tier {
			continue
		}
		if filter.CompanyURL != "" && r.Identity.Normalized().URL != filter.CompanyURL {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
