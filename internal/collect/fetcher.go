package collect

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/resilience"
	"github.com/insightforge/company-intel/pkg/reader"
)

// maxDocChars caps per-source content so synthesis context stays within
// model limits.
const maxDocChars = 8000

// readerFetcher adapts the reader client to the Fetcher contract: page
// sources go through Read, search sources through Search with the top hits
// merged into one document. A shared circuit breaker fails fetches fast when
// the reader upstream is down, instead of burning the fetch timeout on every
// source in a 50-source stage.
type readerFetcher struct {
	client        reader.Client
	breaker       *resilience.CircuitBreaker
	searchResults int
}

// NewReaderFetcher wraps a reader client as a Fetcher.
func NewReaderFetcher(client reader.Client) Fetcher {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("reader circuit state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &readerFetcher{
		client:        client,
		breaker:       resilience.NewCircuitBreaker(cfg),
		searchResults: 3,
	}
}

func (f *readerFetcher) Fetch(ctx context.Context, src catalog.Source, target string) (*Document, error) {
	var doc *Document
	err := f.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		switch src.Kind {
		case catalog.KindPage:
			doc, err = f.fetchPage(ctx, src, target)
		case catalog.KindSearch:
			doc, err = f.fetchSearch(ctx, src, target)
		default:
			return eris.Errorf("collect: unknown fetch kind %q for source %s", src.Kind, src.Name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *readerFetcher) fetchPage(ctx context.Context, src catalog.Source, target string) (*Document, error) {
	resp, err := f.client.Read(ctx, target)
	if err != nil {
		return nil, err
	}
	return &Document{
		Source:  src.Name,
		URL:     target,
		Title:   resp.Data.Title,
		Content: clip(resp.Data.Content),
	}, nil
}

func (f *readerFetcher) fetchSearch(ctx context.Context, src catalog.Source, query string) (*Document, error) {
	resp, err := f.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, eris.Errorf("collect: no search results for %s", src.Name)
	}

	var b strings.Builder
	n := f.searchResults
	if n > len(resp.Data) {
		n = len(resp.Data)
	}
	for _, hit := range resp.Data[:n] {
		b.WriteString("### " + hit.Title + "\n")
		if hit.Content != "" {
			b.WriteString(hit.Content)
		} else {
			b.WriteString(hit.Description)
		}
		b.WriteString("\n")
	}
	return &Document{
		Source:  src.Name,
		URL:     query,
		Title:   "search: " + query,
		Content: clip(b.String()),
	}, nil
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxDocChars {
		return s[:maxDocChars]
	}
	return s
}
