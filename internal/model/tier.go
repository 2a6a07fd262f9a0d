package model

import "github.com/rotisserie/eris"

// AnalysisTier selects which pipeline definition runs for a job.
type AnalysisTier string

const (
	TierStandard      AnalysisTier = "standard"
	TierComprehensive AnalysisTier = "comprehensive"
	TierUniversal     AnalysisTier = "universal"
)

// ParseTier validates a requested tier string. Unknown tiers are an error at
// submission time, never a silent fallback to standard.
func ParseTier(s string) (AnalysisTier, error) {
	switch AnalysisTier(s) {
	case TierStandard, TierComprehensive, TierUniversal:
		return AnalysisTier(s), nil
	case "":
		return TierStandard, nil
	default:
		return "", eris.Errorf("model: unknown analysis tier %q", s)
	}
}

func (t AnalysisTier) String() string {
	return string(t)
}
