package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/catalog"
	"github.com/insightforge/company-intel/internal/collect"
	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/synth"
)

const (
	profileInstruction = "Analyze the company's core business. Describe what the " +
		"company does, who it serves, how it positions itself, and how it makes money."

	marketInstruction = "Analyze the company's market context. Cover its market " +
		"position, named competitors, and any recent news or announcements in the " +
		"source material."

	deepInstruction = "Analyze the company's organization and operations. Cover " +
		"funding and investors, leadership and team, the technology it builds on, " +
		"and visible risk signals."

	strategicInstruction = "Produce a strategic assessment of the company. Give a " +
		"SWOT analysis grounded in the source material, then concrete recommendations " +
		"for engaging with this company."
)

// Deps are the collaborators stages need. One Deps value builds any tier.
type Deps struct {
	Catalog     *catalog.Catalog
	Collector   *collect.Collector
	Synthesizer *synth.Synthesizer
}

// Pipeline is the ordered stage list for one tier. The stage count is fixed
// per tier and known before the first stage runs.
type Pipeline struct {
	tier   model.AnalysisTier
	stages []Stage
}

// Tier reports which tier this pipeline executes.
func (p *Pipeline) Tier() model.AnalysisTier { return p.tier }

// Stages returns the ordered stage list.
func (p *Pipeline) Stages() []Stage { return p.stages }

// TotalSteps is the fixed step count for progress reporting.
func (p *Pipeline) TotalSteps() int { return len(p.stages) }

// ForTier builds the pipeline for a tier. Deeper tiers are supersets of
// shallower ones and reuse the same stage objects.
func ForTier(tier model.AnalysisTier, deps Deps) (*Pipeline, error) {
	b := newStages(deps)
	switch tier {
	case model.TierStandard:
		return &Pipeline{tier: tier, stages: b.standard()}, nil
	case model.TierComprehensive:
		return &Pipeline{tier: tier, stages: b.comprehensive()}, nil
	case model.TierUniversal:
		return &Pipeline{tier: tier, stages: b.universal()}, nil
	default:
		return nil, eris.Errorf("pipeline: no pipeline for tier %q", tier)
	}
}

// stages holds the shared stage objects the tier lists compose from.
type stages struct {
	prepare         Stage
	collectHomepage Stage
	collectPages    Stage
	collectExtended Stage
	collectCatalog  Stage
	aggregate       Stage
	synthProfile    Stage
	synthMarket     Stage
	synthDeep       Stage
	finalize        Stage
	finalizeSWOT    Stage
}

func newStages(deps Deps) *stages {
	return &stages{
		prepare: prepareStage{},
		collectHomepage: &collectStage{
			name:      "collect_homepage",
			label:     "Collecting primary website",
			group:     catalog.GroupSite,
			catalog:   deps.Catalog,
			collector: deps.Collector,
		},
		collectPages: &collectStage{
			name:      "collect_pages",
			label:     "Collecting company pages",
			group:     catalog.GroupPages,
			catalog:   deps.Catalog,
			collector: deps.Collector,
		},
		collectExtended: &collectStage{
			name:      "collect_extended",
			label:     "Collecting extended sources",
			group:     catalog.GroupExtended,
			catalog:   deps.Catalog,
			collector: deps.Collector,
		},
		collectCatalog: &collectStage{
			name:      "collect_catalog",
			label:     "Collecting source catalog",
			group:     catalog.GroupCatalog,
			catalog:   deps.Catalog,
			collector: deps.Collector,
		},
		aggregate: aggregateStage{},
		synthProfile: &synthesizeStage{
			name:        "synthesize_profile",
			label:       "Synthesizing company profile",
			instruction: profileInstruction,
			sections:    []string{"summary", "mission", "value_proposition", "business_model", "key_insights"},
			synth:       deps.Synthesizer,
		},
		synthMarket: &synthesizeStage{
			name:        "synthesize_market",
			label:       "Synthesizing market analysis",
			instruction: marketInstruction,
			sections:    []string{"market_position", "competitors", "news_context"},
			synth:       deps.Synthesizer,
		},
		synthDeep: &synthesizeStage{
			name:        "synthesize_deep",
			label:       "Synthesizing organizational analysis",
			instruction: deepInstruction,
			sections:    []string{"funding", "team", "technology", "risks"},
			synth:       deps.Synthesizer,
		},
		finalize: &finalizeStage{synth: deps.Synthesizer},
		finalizeSWOT: &finalizeStage{
			synthesize: &synthesizeStage{
				name:        "synthesize_strategic",
				label:       "Synthesizing strategic assessment",
				instruction: strategicInstruction,
				sections:    []string{"swot", "recommendations"},
				synth:       deps.Synthesizer,
			},
			synth: deps.Synthesizer,
		},
	}
}

func (b *stages) standard() []Stage {
	return []Stage{
		b.prepare,
		b.collectHomepage,
		b.collectPages,
		b.aggregate,
		b.synthProfile,
		b.finalize,
	}
}

func (b *stages) comprehensive() []Stage {
	return []Stage{
		b.prepare,
		b.collectHomepage,
		b.collectPages,
		b.collectExtended,
		b.aggregate,
		b.synthProfile,
		b.synthMarket,
		b.finalize,
	}
}

func (b *stages) universal() []Stage {
	return []Stage{
		b.prepare,
		b.collectHomepage,
		b.collectPages,
		b.collectExtended,
		b.collectCatalog,
		b.aggregate,
		b.synthProfile,
		b.synthMarket,
		b.synthDeep,
		b.finalizeSWOT,
	}
}
