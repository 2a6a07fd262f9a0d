package store

import (
	"time"

	"github.com/insightforge/company-intel/internal/model"
)

// makeReport builds a minimal valid report for store tests.
func makeReport(id, jobID, name, url string, tier model.AnalysisTier, completedAt time.Time) *model.Report {
	return &model.Report{
		ID:       id,
		JobID:    jobID,
		Identity: model.CompanyIdentity{Name: name, URL: url},
		Tier:     tier,
		Sections: []model.Section{
			{Name: "summary", Content: name + " builds robots."},
			{Name: "mission", Content: "Automate everything."},
		},
		Embedding:      []float32{0.1, 0.2, 0.3},
		ContentLength:  1200,
		RawSample:      "raw sample text",
		ProcessingSecs: 4.2,
		CompletedAt:    completedAt,
	}
}
