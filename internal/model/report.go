package model

import "time"

// Section is one named block of synthesized content. Sections keep their
// pipeline-declared order, so Report carries them as a slice rather than a map.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SourceFailure records one optional source that failed during collection.
// The job continued without its data.
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Report is the immutable output artifact of a successful job. A re-analysis
// creates a new Report rather than mutating an old one, so historical reports
// remain valid for audit.
type Report struct {
	ID             string          `json:"id"`
	JobID          string          `json:"job_id"`
	Identity       CompanyIdentity `json:"identity"`
	Tier           AnalysisTier    `json:"tier"`
	Sections       []Section       `json:"sections"`
	Embedding      []float32       `json:"embedding"`
	SourceFailures []SourceFailure `json:"source_failures,omitempty"`
	ContentLength  int             `json:"content_length"`
	RawSample      string          `json:"raw_sample,omitempty"`
	ProcessingSecs float64         `json:"processing_seconds"`
	CompletedAt    time.Time       `json:"completed_at"`
}

// Section returns the content of a named section, or "" if absent.
func (r *Report) Section(name string) string {
	for _, s := range r.Sections {
		if s.Name == name {
			return s.Content
		}
	}
	return ""
}
