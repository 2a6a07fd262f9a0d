// Package store persists completed reports. Reports are versioned: writing a
// new report for a dedup key never overwrites an older one, and lookups by
// key return the newest.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/model"
)

// ErrNotFound is returned when no report matches the lookup.
var ErrNotFound = eris.New("store: report not found")

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Tier       model.AnalysisTier `json:"tier,omitempty"`
	CompanyURL string             `json:"company_url,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Offset     int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for completed reports.
type Store interface {
	// PutReport persists a report. Idempotent per job: a second write with
	// the same job ID is a no-op, so a retried persistence step can never
	// produce duplicate rows.
	PutReport(ctx context.Context, r *model.Report) error

	// GetReport returns the newest report for a dedup key, or ErrNotFound.
	GetReport(ctx context.Context, dedupKey string) (*model.Report, error)

	// GetReportByID returns a report by its report ID, or ErrNotFound.
	GetReportByID(ctx context.Context, id string) (*model.Report, error)

	// ListReports returns reports matching the filter, newest first.
	ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
