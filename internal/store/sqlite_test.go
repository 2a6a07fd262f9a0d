package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/company-intel/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_PutAndGetReport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rep := makeReport("r1", "j1", "Acme", "https://acme.com", model.TierStandard, time.Now().UTC())
	rep.SourceFailures = []model.SourceFailure{{Source: "crunchbase", Reason: "status 404"}}
	require.NoError(t, st.PutReport(ctx, rep))

	key := rep.Identity.DedupKey(rep.Tier)
	got, err := st.GetReport(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "j1", got.JobID)
	assert.Equal(t, model.TierStandard, got.Tier)
	assert.Equal(t, "Acme builds robots.", got.Section("summary"))
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	require.Len(t, got.SourceFailures, 1)
	assert.Equal(t, "crunchbase", got.SourceFailures[0].Source)
}

func TestSQLite_GetReport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetReport(context.Background(), "no|such|key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_PutReport_IdempotentPerJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := makeReport("r1", "j1", "Acme", "https://acme.com", model.TierStandard, time.Now().UTC())
	require.NoError(t, st.PutReport(ctx, first))

	// A retried write for the same job must not replace the stored report.
	retry := makeReport("r2", "j1", "Acme", "https://acme.com", model.TierStandard, time.Now().UTC().Add(time.Minute))
	require.NoError(t, st.PutReport(ctx, retry))

	got, err := st.GetReport(ctx, first.Identity.DedupKey(first.Tier))
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestSQLite_GetReport_NewestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	old := makeReport("r1", "j1", "Acme", "https://acme.com", model.TierStandard, base.Add(-time.Hour))
	require.NoError(t, st.PutReport(ctx, old))

	// A re-analysis of the same company and tier versions the report.
	newer := makeReport("r2", "j2", "Acme", "https://acme.com", model.TierStandard, base)
	require.NoError(t, st.PutReport(ctx, newer))

	got, err := st.GetReport(ctx, old.Identity.DedupKey(old.Tier))
	require.NoError(t, err)
	assert.Equal(t, "r2", got.ID)

	// The old version stays retrievable by ID.
	byID, err := st.GetReportByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "j1", byID.JobID)
}

func TestSQLite_TierKeysAreDistinct(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	std := makeReport("r1", "j1", "Acme", "https://acme.com", model.TierStandard, time.Now().UTC())
	require.NoError(t, st.PutReport(ctx, std))

	_, err := st.GetReport(ctx, std.Identity.DedupKey(model.TierUniversal))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_GetReportByID_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetReportByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListReports(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, st.PutReport(ctx, makeReport("r1", "j1", "Acme", "https://acme.com", model.TierStandard, base.Add(-2*time.Hour))))
	require.NoError(t, st.PutReport(ctx, makeReport("r2", "j2", "Globex", "https://globex.com", model.TierUniversal, base.Add(-time.Hour))))
	require.NoError(t, st.PutReport(ctx, makeReport("r3", "j3", "Initech", "https://initech.com", model.TierStandard, base)))

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r3", all[0].ID) // newest first
	assert.Equal(t, "r1", all[2].ID)

	std, err := st.ListReports(ctx, ReportFilter{Tier: model.TierStandard})
	require.NoError(t, err)
	assert.Len(t, std, 2)

	byURL, err := st.ListReports(ctx, ReportFilter{CompanyURL: "https://globex.com"})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, "r2", byURL[0].ID)

	paged, err := st.ListReports(ctx, ReportFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "r2", paged[0].ID)
}
