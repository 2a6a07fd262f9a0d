package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/collect"
	"github.com/insightforge/company-intel/internal/job"
	"github.com/insightforge/company-intel/internal/pipeline"
	"github.com/insightforge/company-intel/internal/store"
	"github.com/insightforge/company-intel/internal/synth"
	anthropicpkg "github.com/insightforge/company-intel/pkg/anthropic"
	"github.com/insightforge/company-intel/pkg/ollama"
	"github.com/insightforge/company-intel/pkg/reader"
)

// analysisEnv holds the initialized stores, clients, and orchestrator used
// by the analyze/serve/reports commands.
type analysisEnv struct {
	Store store.Store
	Orch  *job.Orchestrator
}

// Close releases resources held by the environment.
func (e *analysisEnv) Close() {
	if e.Orch != nil {
		e.Orch.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "company-intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the report store, all API clients, the source catalog, and
// the orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*analysisEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load source catalog")
	}

	readerOpts := []reader.Option{
		reader.WithBaseURL(cfg.Reader.BaseURL),
		reader.WithRateLimit(cfg.Reader.RatePerSec, cfg.Reader.Burst),
	}
	if cfg.Reader.SearchBaseURL != "" {
		readerOpts = append(readerOpts, reader.WithSearchBaseURL(cfg.Reader.SearchBaseURL))
	}
	readerClient := reader.NewClient(cfg.Reader.Key, readerOpts...)

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	ollamaClient := ollama.NewClient(
		ollama.WithBaseURL(cfg.Ollama.BaseURL),
		ollama.WithModel(cfg.Ollama.Model),
	)

	collector := collect.New(
		collect.NewReaderFetcher(readerClient),
		cfg.Collect.MaxConcurrentFetches,
		cfg.Collect.FetchTimeout(),
		collect.WithMinContentLength(cfg.Collect.MinContentLength),
	)
	synthesizer := synth.New(
		synth.NewAnthropicGenerator(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens),
		ollamaClient,
		cfg.Ollama.Dimensions,
		cfg.Synth.Timeout(),
	)

	orch := job.NewOrchestrator(job.NewMemoryStore(), st, pipeline.Deps{
		Catalog:     cat,
		Collector:   collector,
		Synthesizer: synthesizer,
	})

	return &analysisEnv{Store: st, Orch: orch}, nil
}
