// Package decision assembles the persisted decision record and the API
// response from the engine verdict and its contributing signals.
package decision

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// EngineVersion is stamped into every decision's metadata.
const EngineVersion = "fraudguard-1.0"

// BuildInput carries everything one decision is derived from.
type BuildInput struct {
	Tx              *domain.Transaction
	TraceID         string
	StartTime       time.Time
	Verdict         domain.Verdict
	Features        domain.FeatureSet
	ClassifierScore domain.SignalScore
	TextScore       domain.SignalScore
	Flags           []domain.RuleFlag
}

// Builder produces decisions. It is stateless and safe for concurrent use.
type Builder struct{}

// NewBuilder creates a decision builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build assembles the audit record and its API response.
func (b *Builder) Build(input *BuildInput) (*domain.Decision, *domain.DecisionResponse) {
	start := time.Now()

	d := &domain.Decision{
		ID:              uuid.New().String(),
		TxID:            input.Tx.ID,
		Fraud:           input.Verdict.IsFraud,
		Confidence:      round3(input.Verdict.Confidence),
		Reasons:         input.Verdict.Reasons,
		Category:        input.Features.Category,
		Timestamp:       time.Now().UTC(),
		ClassifierScore: input.ClassifierScore,
		TextScore:       input.TextScore,
		Flags:           input.Flags,
	}

	d.Metadata = domain.DecisionMetadata{
		TraceID:       input.TraceID,
		DecisionMs:    time.Since(start).Milliseconds(),
		TotalMs:       time.Since(input.StartTime).Milliseconds(),
		EngineVersion: EngineVersion,
	}

	resp := &domain.DecisionResponse{
		DecisionID: d.ID,
		Fraud:      d.Fraud,
		Confidence: d.Confidence,
		DescriptionAnalysis: domain.DescriptionAnalysis{
			Reasons:  analysisReasons(input),
			Features: input.Features,
			Category: categoryOrNull(input.Features.Category),
		},
		OriginalPrediction: domain.OriginalPrediction{
			Fraud:      input.ClassifierScore.IsFraud(),
			Confidence: round3(input.ClassifierScore.Probability),
		},
		Flags:    input.Flags,
		Metadata: d.Metadata,
	}

	return d, resp
}

// analysisReasons merges the text trail with the verdict trail, text first,
// dropping duplicates while preserving order.
func analysisReasons(input *BuildInput) []string {
	seen := make(map[string]bool, len(input.TextScore.Reasons)+len(input.Verdict.Reasons))
	reasons := make([]string, 0, len(input.TextScore.Reasons)+len(input.Verdict.Reasons))
	for _, trail := range [][]string{input.TextScore.Reasons, input.Verdict.Reasons} {
		for _, r := range trail {
			if seen[r] {
				continue
			}
			seen[r] = true
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// categoryOrNull maps the unknown category to a JSON null.
func categoryOrNull(c domain.Category) *string {
	if c == domain.CategoryUnknown {
		return nil
	}
	s := string(c)
	return &s
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
