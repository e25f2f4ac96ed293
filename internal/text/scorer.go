package text

import (
	"fmt"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Fixed per-delta weights of the text risk score.
const (
	suspiciousWeight = 0.15
	suspiciousCap    = 0.3
	safeWeight       = 0.1
	safeCap          = 0.4
	capsPenalty      = 0.2

	transportSafety  = 0.4
	foodSafety       = 0.3
	regulatedSafety  = 0.3
	emptyDescPenalty = 0.25

	// Near-zero floor for categories treated as near-certainly safe
	safeFloor = 0.05
)

// Scorer converts a FeatureSet plus amount/hour context into an independent
// fraud probability with an ordered reasons trail.
type Scorer struct {
	thresholds domain.Thresholds
}

// NewScorer creates a text risk scorer bound to the active thresholds.
func NewScorer(thresholds domain.Thresholds) *Scorer {
	return &Scorer{thresholds: thresholds}
}

// Score accumulates deltas from a neutral base of 0 and clamps the result
// into [0,1]. Reasons preserve the order deltas were applied.
func (s *Scorer) Score(fs domain.FeatureSet, amount float64, hour int) domain.SignalScore {
	score := 0.0
	var reasons []string

	if fs.SuspiciousCount > 0 {
		score += min(suspiciousCap, float64(fs.SuspiciousCount)*suspiciousWeight)
		reasons = append(reasons, fmt.Sprintf("contains %d suspicious keyword(s)", fs.SuspiciousCount))
	}

	if fs.SafeCount > 0 {
		score -= min(safeCap, float64(fs.SafeCount)*safeWeight)
		reasons = append(reasons, fmt.Sprintf("contains %d legitimate keyword(s)", fs.SafeCount))
	}

	if fs.IsAllCaps {
		score += capsPenalty
		reasons = append(reasons, "message in all caps")
	}

	// Category adjustments apply after the keyword deltas.
	switch fs.Category {
	case domain.CategoryTransport:
		score = max(0, score-transportSafety)
		reasons = append(reasons, "transportation expense")
		if hour < 6 {
			reasons = append(reasons, "late night transport is normal")
		}
	case domain.CategoryHealthcare:
		// Healthcare overrides all prior deltas.
		score = safeFloor
		reasons = append(reasons, "healthcare expense, treated as safe")
	case domain.CategoryFood:
		if amount < s.thresholds.TrivialAmount {
			score = max(0, score-foodSafety)
			reasons = append(reasons, "food expense under the safe amount")
		}
	case domain.CategoryBills, domain.CategoryEducation:
		score = max(0, score-regulatedSafety)
		reasons = append(reasons, fmt.Sprintf("regular %s payment", fs.Category))
	}

	if amount > s.thresholds.LowAmount && fs.WordCount == 0 {
		score += emptyDescPenalty
		reasons = append(reasons, "high amount with no description")
	}

	// Terminal override within the scorer: a small transport charge is
	// treated as safe outright and its trail collapses to one reason.
	// Later engine rules may still override the verdict.
	if amount < s.thresholds.TrivialAmount && fs.Category == domain.CategoryTransport {
		score = safeFloor
		reasons = []string{"small transport expense, treated as safe"}
	}

	score = max(0, min(1, score))

	return domain.NewSignalScore(domain.SourceText, score, reasons)
}
