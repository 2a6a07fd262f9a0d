package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/collect"
	"github.com/insightforge/company-intel/internal/job"
	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/pipeline"
	"github.com/insightforge/company-intel/internal/store"
	"github.com/insightforge/company-intel/internal/synth"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ catalog.Source, target string) (*collect.Document, error) {
	return &collect.Document{
		URL:     target,
		Title:   "Acme",
		Content: strings.Repeat("Acme builds compact industrial robots. ", 10),
	}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, string) (string, error) {
	return "Summary: Robot maker.\nMission: Automate factories.\n" +
		"Value Proposition: Fast installs.\nBusiness Model: Hardware plus subscription.\n" +
		"Key Insights: Automotive traction.", nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, 8), nil
}

type testServer struct {
	srv     *Server
	reports store.Store
	orch    *job.Orchestrator
	router  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat, err := catalog.Load()
	require.NoError(t, err)

	reports := store.NewMemory()
	orch := job.NewOrchestrator(job.NewMemoryStore(), reports, pipeline.Deps{
		Catalog:     cat,
		Collector:   collect.New(stubFetcher{}, 10, time.Second),
		Synthesizer: synth.New(stubGenerator{}, stubEmbedder{}, 8, time.Minute),
	})
	t.Cleanup(orch.Close)

	srv := New(orch, reports, 0)
	return &testServer{srv: srv, reports: reports, orch: orch, router: srv.Router()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (ts *testServer) waitSuccess(t *testing.T, jobID string) *model.JobRecord {
	t.Helper()
	var rec *model.JobRecord
	require.Eventually(t, func() bool {
		got, err := ts.orch.Status(context.Background(), jobID)
		if err != nil {
			return false
		}
		rec = got
		return got.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, model.JobStateSuccess, rec.State, "error: %+v", rec.Error)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestAnalyze_Accepted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", map[string]string{
		"company_name":  "Acme Corp",
		"company_url":   "https://acme.com",
		"analysis_type": "standard",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "accepted", body["status"])
	assert.NotEmpty(t, body["job_id"])
}

func TestAnalyze_DefaultsToStandardTier(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", map[string]string{
		"company_name": "Acme Corp",
		"company_url":  "https://acme.com",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	jobID := decodeBody(t, rec)["job_id"].(string)
	status, err := ts.orch.Status(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.TierStandard, status.Tier)
}

func TestAnalyze_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/analyze", map[string]string{"company_name": "Acme"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/analyze", map[string]string{
		"company_name":  "Acme",
		"company_url":   "https://acme.com",
		"analysis_type": "deluxe",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyze_CachedReportReturnsImmediately(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]string{
		"company_name":  "Acme Corp",
		"company_url":   "https://acme.com",
		"analysis_type": "standard",
	}
	first := ts.do(t, http.MethodPost, "/api/v1/analyze", payload)
	require.Equal(t, http.StatusAccepted, first.Code)
	jobID := decodeBody(t, first)["job_id"].(string)
	ts.waitSuccess(t, jobID)

	second := ts.do(t, http.MethodPost, "/api/v1/analyze", payload)
	require.Equal(t, http.StatusOK, second.Code)

	body := decodeBody(t, second)
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, true, body["cached"])
	assert.NotEmpty(t, body["report_id"])
	assert.NotNil(t, body["report"])
}

func TestAnalyze_AttachesToInFlightJob(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]string{
		"company_name":  "Slowpoke Inc",
		"company_url":   "https://slowpoke.example",
		"analysis_type": "universal",
	}
	first := ts.do(t, http.MethodPost, "/api/v1/analyze", payload)
	require.Equal(t, http.StatusAccepted, first.Code)
	jobID := decodeBody(t, first)["job_id"].(string)

	// The universal pipeline fans out enough work that an immediate resubmit
	// lands while the job is still running.
	second := ts.do(t, http.MethodPost, "/api/v1/analyze", payload)
	if second.Code == http.StatusAccepted {
		body := decodeBody(t, second)
		assert.Equal(t, jobID, body["job_id"])
	} else {
		// The first job already finished; the resubmit hit the cache instead.
		assert.Equal(t, http.StatusOK, second.Code)
	}
}

func TestStatus_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/status/unknown-job", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus_CompletedJob(t *testing.T) {
	ts := newTestServer(t)

	submit := ts.do(t, http.MethodPost, "/api/v1/analyze", map[string]string{
		"company_name":  "Acme Corp",
		"company_url":   "https://acme.com",
		"analysis_type": "standard",
	})
	require.Equal(t, http.StatusAccepted, submit.Code)
	jobID := decodeBody(t, submit)["job_id"].(string)
	ts.waitSuccess(t, jobID)

	rec := ts.do(t, http.MethodGet, "/api/v1/status/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["state"])
	assert.Equal(t, float64(100), body["percentage"])
	assert.NotEmpty(t, body["report_id"])

	progress := body["progress"].(map[string]any)
	assert.Equal(t, progress["total_steps"], progress["current_step"])
}

func TestReport_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/report/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport_Found(t *testing.T) {
	ts := newTestServer(t)

	rep := &model.Report{
		ID:          "r1",
		JobID:       "j1",
		Identity:    model.CompanyIdentity{Name: "Acme", URL: "https://acme.com"},
		Tier:        model.TierStandard,
		Sections:    []model.Section{{Name: "summary", Content: "Robot maker."}},
		CompletedAt: time.Now().UTC(),
	}
	require.NoError(t, ts.reports.PutReport(context.Background(), rep))

	rec := ts.do(t, http.MethodGet, "/api/v1/report/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "r1", body["id"])
	assert.Equal(t, "j1", body["job_id"])
}

func TestListReports(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for i, tier := range []model.AnalysisTier{model.TierStandard, model.TierUniversal} {
		rep := &model.Report{
			ID:          fmt.Sprintf("r%d", i+1),
			JobID:       fmt.Sprintf("j%d", i+1),
			Identity:    model.CompanyIdentity{Name: "Acme", URL: "https://acme.com"},
			Tier:        tier,
			CompletedAt: time.Now().UTC(),
		}
		require.NoError(t, ts.reports.PutReport(ctx, rep))
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/reports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["reports"], 2)

	rec = ts.do(t, http.MethodGet, "/api/v1/reports?tier=universal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody(t, rec)["reports"].([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, "r2", listed[0].(map[string]any)["report_id"])

	rec = ts.do(t, http.MethodGet, "/api/v1/reports?tier=deluxe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
