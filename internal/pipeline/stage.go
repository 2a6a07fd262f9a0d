// Package pipeline defines the ordered stage lists executed per analysis
// tier. Tiers share stage objects by composition: the comprehensive list
// literally contains the standard tier's stages, and universal contains
// comprehensive's.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/collect"
	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/synth"
)

// State carries everything a job accumulates across its stages. Stages run
// strictly in declared order, so State needs no internal locking.
type State struct {
	Identity  model.CompanyIdentity
	Tier      model.AnalysisTier
	Documents map[string]*collect.Document
	Sources   []catalog.Source // declared-order union of collected source lists
	Aggregate string
	Sections  []model.Section
	Failures  []model.SourceFailure
	Embedding []float32
}

// Stage is one step of a pipeline. Every stage participates identically in
// the job state machine: it succeeds, or it hard-fails the job.
type Stage interface {
	Name() string
	Label() string
	Run(ctx context.Context, st *State) error
}

// --- prepare ---

type prepareStage struct{}

func (prepareStage) Name() string  { return "prepare" }
func (prepareStage) Label() string { return "Preparing analysis" }

func (prepareStage) Run(_ context.Context, st *State) error {
	if st.Identity.Domain() == "" {
		return eris.Errorf("pipeline: no usable domain in URL %q", st.Identity.URL)
	}
	st.Documents = make(map[string]*collect.Document)
	return nil
}

// --- collect ---

type collectStage struct {
	name      string
	label     string
	group     catalog.Group
	catalog   *catalog.Catalog
	collector *collect.Collector
}

func (s *collectStage) Name() string  { return s.name }
func (s *collectStage) Label() string { return s.label }

func (s *collectStage) Run(ctx context.Context, st *State) error {
	sources := s.catalog.Group(s.group)
	res, err := s.collector.Collect(ctx, st.Identity, sources)
	if err != nil {
		return err
	}
	for name, doc := range res.Documents {
		st.Documents[name] = doc
	}
	st.Sources = append(st.Sources, sources...)
	st.Failures = append(st.Failures, res.Failures...)
	return nil
}

// --- aggregate ---

type aggregateStage struct{}

func (aggregateStage) Name() string  { return "aggregate" }
func (aggregateStage) Label() string { return "Aggregating collected data" }

func (aggregateStage) Run(_ context.Context, st *State) error {
	st.Aggregate = collect.Aggregate(st.Sources, st.Documents)
	if st.Aggregate == "" {
		return eris.New("pipeline: no content collected")
	}
	return nil
}

// --- synthesize ---

type synthesizeStage struct {
	name        string
	label       string
	instruction string
	sections    []string
	synth       *synth.Synthesizer
}

func (s *synthesizeStage) Name() string  { return s.name }
func (s *synthesizeStage) Label() string { return s.label }

func (s *synthesizeStage) Run(ctx context.Context, st *State) error {
	sections, err := s.synth.Synthesize(ctx, synth.Request{
		Identity:    st.Identity,
		Instruction: s.instruction,
		Sections:    s.sections,
		Context:     st.Aggregate,
	})
	if err != nil {
		return err
	}
	st.Sections = append(st.Sections, sections...)
	return nil
}

// --- finalize ---

// finalizeStage is the last stage of every tier. It optionally runs one more
// synthesis pass (universal's strategic sections) and then requests the
// embedding vector over the full aggregate. Embedding failure hard-fails the
// job: a report is not complete without its vector.
type finalizeStage struct {
	synthesize *synthesizeStage // nil when the tier has no closing synthesis
	synth      *synth.Synthesizer
}

func (s *finalizeStage) Name() string { return "finalize" }

func (s *finalizeStage) Label() string { return "Finalizing report" }

func (s *finalizeStage) Run(ctx context.Context, st *State) error {
	if s.synthesize != nil {
		if err := s.synthesize.Run(ctx, st); err != nil {
			return err
		}
	}
	vec, err := s.synth.Embed(ctx, st.Aggregate)
	if err != nil {
		return err
	}
	st.Embedding = vec
	return nil
}
