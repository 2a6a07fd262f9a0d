// Package server exposes the analysis API over HTTP: submit a company for
// analysis, poll job status, and fetch completed reports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/job"
	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/store"
)

// Server serves the analysis HTTP API.
type Server struct {
	orch    *job.Orchestrator
	reports store.Store
	port    int
}

// New creates a Server over the orchestrator and report store.
func New(orch *job.Orchestrator, reports store.Store, port int) *Server {
	return &Server{orch: orch, reports: reports, port: port}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/report/{reportID}", s.handleReport)
		r.Get("/reports", s.handleListReports)
		r.Get("/health", s.handleHealth)
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

// analyzeRequest is the submission payload.
type analyzeRequest struct {
	CompanyName  string `json:"company_name"`
	CompanyURL   string `json:"company_url"`
	AnalysisType string `json:"analysis_type"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyName == "" || req.CompanyURL == "" {
		writeError(w, http.StatusBadRequest, "company_name and company_url are required")
		return
	}
	tier, err := model.ParseTier(req.AnalysisType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.orch.Submit(r.Context(), model.CompanyIdentity{Name: req.CompanyName, URL: req.CompanyURL}, tier)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch {
	case res.Cached:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "complete",
			"cached":    true,
			"report_id": res.Report.ID,
			"report":    res.Report,
		})
	case res.Attached:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "in_progress",
			"job_id": res.Job.ID,
		})
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "accepted",
			"job_id": res.Job.ID,
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.orch.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"job_id":     rec.ID,
		"state":      rec.State,
		"tier":       rec.Tier,
		"company":    rec.Identity,
		"progress":   rec.Progress,
		"percentage": rec.Progress.Percentage(),
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
	if rec.Error != nil {
		resp["error"] = rec.Error
	}
	if rec.ResultRef != "" {
		resp["report_id"] = rec.ResultRef
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.GetReportByID(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	filter := store.ReportFilter{CompanyURL: r.URL.Query().Get("company_url")}
	if t := r.URL.Query().Get("tier"); t != "" {
		tier, err := model.ParseTier(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Tier = tier
	}

	reports, err := s.reports.ListReports(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Listings return summaries; the full report comes from /report/{id}.
	summaries := make([]map[string]any, 0, len(reports))
	for _, rep := range reports {
		summaries = append(summaries, map[string]any{
			"report_id":    rep.ID,
			"company":      rep.Identity,
			"tier":         rep.Tier,
			"completed_at": rep.CompletedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": summaries})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
