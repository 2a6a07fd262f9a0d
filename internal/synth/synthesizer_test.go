package synth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightforge/company-intel/internal/model"
)

type fakeGenerator struct {
	text       string
	err        error
	lastSystem string
	lastPrompt string
	calls      int
}

func (g *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.calls++
	g.lastSystem = system
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

func testRequest() Request {
	return Request{
		Identity:    model.CompanyIdentity{Name: "Acme Corp", URL: "https://acme.com"},
		Instruction: "Analyze the company's core business.",
		Sections:    []string{"summary", "mission"},
		Context:     "## [homepage] Acme\nWe build robots.",
	}
}

func TestSynthesize_Success(t *testing.T) {
	gen := &fakeGenerator{text: "Summary: Robot maker.\nMission: Automate factories."}
	s := New(gen, &fakeEmbedder{}, 0, time.Minute)

	sections, err := s.Synthesize(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Robot maker.", sections[0].Content)

	// Prompt carries the company, the instruction, the requested headers,
	// and the aggregated source material.
	assert.Contains(t, gen.lastPrompt, "Acme Corp")
	assert.Contains(t, gen.lastPrompt, "Analyze the company's core business.")
	assert.Contains(t, gen.lastPrompt, "- Summary")
	assert.Contains(t, gen.lastPrompt, "- Mission")
	assert.Contains(t, gen.lastPrompt, "We build robots.")
	assert.NotEmpty(t, gen.lastSystem)
}

func TestSynthesize_EmptyContextIsError(t *testing.T) {
	gen := &fakeGenerator{text: "Summary: x"}
	s := New(gen, &fakeEmbedder{}, 0, time.Minute)

	req := testRequest()
	req.Context = "  \n "
	_, err := s.Synthesize(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, 0, gen.calls)
}

func TestSynthesize_GenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("model overloaded")}
	s := New(gen, &fakeEmbedder{}, 0, time.Minute)

	_, err := s.Synthesize(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
}

func TestSynthesize_UnusableOutputIsError(t *testing.T) {
	// Headers only, no content anywhere: the stage must not succeed with an
	// empty report body.
	gen := &fakeGenerator{text: "Summary:\nMission:"}
	s := New(gen, &fakeEmbedder{}, 0, time.Minute)

	_, err := s.Synthesize(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestEmbed_Success(t *testing.T) {
	vec := make([]float32, 768)
	emb := &fakeEmbedder{vec: vec}
	s := New(&fakeGenerator{}, emb, 768, time.Minute)

	got, err := s.Embed(context.Background(), "aggregate text")
	require.NoError(t, err)
	assert.Len(t, got, 768)
}

func TestEmbed_Failure(t *testing.T) {
	emb := &fakeEmbedder{err: fmt.Errorf("embedding service down")}
	s := New(&fakeGenerator{}, emb, 768, time.Minute)

	_, err := s.Embed(context.Background(), "aggregate text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding failed")
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	emb := &fakeEmbedder{vec: make([]float32, 384)}
	s := New(&fakeGenerator{}, emb, 768, time.Minute)

	_, err := s.Embed(context.Background(), "aggregate text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbed_NoDimensionCheckWhenUnset(t *testing.T) {
	emb := &fakeEmbedder{vec: make([]float32, 42)}
	s := New(&fakeGenerator{}, emb, 0, time.Minute)

	got, err := s.Embed(context.Background(), "aggregate text")
	require.NoError(t, err)
	assert.Len(t, got, 42)
}
