// Package synth turns aggregated source text into structured report sections
// via the text-generation collaborator, and produces the embedding vector for
// the final aggregate.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/resilience"
)

// Generator is the external text-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Embedder is the external vector-generation collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const systemPrompt = "You are an expert business analyst. Answer with the " +
	"requested section headers, one per line in the form 'Header: content'. " +
	"Base every statement on the provided source material and state clearly " +
	"when information is unavailable."

// Request describes one synthesis stage invocation.
type Request struct {
	Identity    model.CompanyIdentity
	Instruction string   // stage-specific analysis instruction
	Sections    []string // declared section set, in report order
	Context     string   // aggregated collected text
}

// Synthesizer invokes the generation collaborator once per stage and parses
// the output into the stage's declared sections.
type Synthesizer struct {
	gen        Generator
	embedder   Embedder
	dimensions int
	timeout    time.Duration
}

// New creates a Synthesizer. dimensions, when > 0, is the required embedding
// vector length; a mismatch is an error.
func New(gen Generator, embedder Embedder, dimensions int, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Synthesizer{gen: gen, embedder: embedder, dimensions: dimensions, timeout: timeout}
}

// Synthesize runs one generation call and parses the result. A failed call or
// malformed/empty output is an error: the stage may not substitute empty
// content and claim success.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) ([]model.Section, error) {
	if strings.TrimSpace(req.Context) == "" {
		return nil, eris.New("synth: no aggregated content to analyze")
	}

	prompt := buildPrompt(req)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(genCtx, systemPrompt, prompt)
	if err != nil {
		return nil, eris.Wrap(err, "synth: generation failed")
	}

	sections, err := ParseSections(text, req.Sections)
	if err != nil {
		return nil, err
	}

	zap.L().Info("synthesis complete",
		zap.String("company", req.Identity.Name),
		zap.Int("sections", len(sections)),
		zap.Duration("duration", time.Since(start)),
	)
	return sections, nil
}

// Embed requests the embedding vector over the full aggregate text. A report
// is not complete without its vector, so any failure here, including a wrong
// dimensionality, is an error.
func (s *Synthesizer) Embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var vec []float32
	err := resilience.Do(embedCtx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = s.embedder.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, eris.Wrap(err, "synth: embedding failed")
	}
	if s.dimensions > 0 && len(vec) != s.dimensions {
		return nil, eris.Errorf("synth: embedding dimension %d, want %d", len(vec), s.dimensions)
	}
	return vec, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (%s)\n\n", req.Identity.Name, req.Identity.URL)
	b.WriteString(req.Instruction)
	b.WriteString("\n\nProvide these sections:\n")
	for _, name := range req.Sections {
		b.WriteString("- " + headerForSection(name) + "\n")
	}
	b.WriteString("\nSource material:\n\n")
	b.WriteString(req.Context)
	return b.String()
}
