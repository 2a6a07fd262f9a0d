// Package collect fetches data sources for a company with bounded
// concurrency and classifies per-source failures as soft (optional source,
// recorded and skipped) or hard (required source, aborts the stage).
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/model"
)

// Document is the normalized output of one successful source fetch.
type Document struct {
	Source  string `json:"source"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fetcher is the external content-fetching collaborator. Given a source
// descriptor and its expanded target, it returns normalized text or fails.
type Fetcher interface {
	Fetch(ctx context.Context, src catalog.Source, target string) (*Document, error)
}

// RequiredSourceError reports that a required source failed, which hard-fails
// the collection stage.
type RequiredSourceError struct {
	Source string
	Err    error
}

func (e *RequiredSourceError) Error() string {
	return fmt.Sprintf("required source %s: %v", e.Source, e.Err)
}

func (e *RequiredSourceError) Unwrap() error { return e.Err }

// Result holds the outcome of one collection stage: documents by source name
// plus soft failures in declared catalog order. Failed sources contribute no
// document at all.
type Result struct {
	Documents map[string]*Document
	Failures  []model.SourceFailure
}

// Collector fans out source fetches with a bounded concurrency limit.
type Collector struct {
	fetcher       Fetcher
	sem           *semaphore.Weighted
	fetchTimeout  time.Duration
	minContentLen int
}

// Option configures a Collector.
type Option func(*Collector)

// WithMinContentLength sets the minimum content length below which a fetch is
// treated as failed (a blocked or empty page is not usable data).
func WithMinContentLength(n int) Option {
	return func(c *Collector) { c.minContentLen = n }
}

// New creates a Collector. maxConcurrent bounds simultaneous outbound
// fetches; fetchTimeout applies per source.
func New(fetcher Fetcher, maxConcurrent int, fetchTimeout time.Duration, opts ...Option) *Collector {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	c := &Collector{
		fetcher:       fetcher,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
		fetchTimeout:  fetchTimeout,
		minContentLen: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches every source independently and concurrently. The relative
// completion order does not matter: results are merged by source name and
// failures are reported in declared catalog order. If any required source
// fails, Collect returns a RequiredSourceError and the stage outcome is a
// hard failure.
func (c *Collector) Collect(ctx context.Context, id model.CompanyIdentity, sources []catalog.Source) (*Result, error) {
	log := zap.L().With(zap.String("company", id.Name))

	docs := make([]*Document, len(sources))
	errs := make([]error, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			if err := c.sem.Acquire(gCtx, 1); err != nil {
				errs[i] = err
				return nil
			}
			defer c.sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(gCtx, c.fetchTimeout)
			defer cancel()

			doc, err := c.fetcher.Fetch(fetchCtx, src, src.Expand(id))
			if err == nil && len(strings.TrimSpace(doc.Content)) < c.minContentLen {
				err = fmt.Errorf("insufficient content (%d chars)", len(doc.Content))
			}
			if err != nil {
				errs[i] = err
				log.Debug("source fetch failed",
					zap.String("source", src.Name),
					zap.Bool("required", src.Required),
					zap.Error(err),
				)
				return nil
			}
			doc.Source = src.Name
			docs[i] = doc
			return nil
		})
	}
	// Fetch errors are collected per source, never propagated through the group.
	_ = g.Wait()

	result := &Result{Documents: make(map[string]*Document, len(sources))}
	for i, src := range sources {
		if errs[i] != nil {
			if src.Required {
				return nil, &RequiredSourceError{Source: src.Name, Err: errs[i]}
			}
			result.Failures = append(result.Failures, model.SourceFailure{
				Source: src.Name,
				Reason: errs[i].Error(),
			})
			continue
		}
		result.Documents[src.Name] = docs[i]
	}

	log.Info("collection stage complete",
		zap.Int("sources", len(sources)),
		zap.Int("fetched", len(result.Documents)),
		zap.Int("soft_failures", len(result.Failures)),
	)
	return result, nil
}

// Aggregate concatenates collected documents in declared catalog order so the
// synthesis context is deterministic regardless of fetch completion order.
func Aggregate(sources []catalog.Source, docs map[string]*Document) string {
	var b strings.Builder
	for _, src := range sources {
		doc, ok := docs[src.Name]
		if !ok {
			continue
		}
		b.WriteString("## [" + src.Name + "] " + doc.Title + "\n")
		b.WriteString(doc.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
