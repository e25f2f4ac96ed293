package engine

import (
	"fmt"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// ruleInput is the read-only view of one transaction the rules match against.
type ruleInput struct {
	amount     float64
	hour       int
	features   domain.FeatureSet
	hasText    bool
	thresholds domain.Thresholds
}

// rule is one ordered override. match decides whether it fires, apply
// mutates the verdict.
type rule struct {
	name  string
	match func(in ruleInput) bool
	apply func(v *domain.Verdict, in ruleInput)
}

// Engine merges the classifier prior with amount/time/category overrides.
// Rules are built once from the active thresholds and never change; Decide
// is pure and safe for concurrent use.
type Engine struct {
	thresholds domain.Thresholds
	escalation []rule
	category   []rule
	hard       []rule
}

// New builds the rule ladder for the given thresholds.
func New(thresholds domain.Thresholds) *Engine {
	e := &Engine{thresholds: thresholds}
	e.escalation = escalationRules()
	e.category = categoryRules()
	e.hard = hardRules()
	return e
}

// Decide evaluates the full ladder for one transaction.
//
// Evaluation order:
//  1. baseline verdict from the classifier score
//  2. escalation tier (first match wins)
//  3. category tier (first match wins, independent of tier 2)
//  4. hard overrides (always evaluated)
//  5. finalize: clamp plus the trivial-amount confidence ceiling
func (e *Engine) Decide(tx *domain.Transaction, features domain.FeatureSet, classifierScore, textScore domain.SignalScore) domain.Verdict {
	in := ruleInput{
		amount:     tx.Amount,
		hour:       tx.Hour(),
		features:   features,
		hasText:    features.WordCount > 0,
		thresholds: e.thresholds,
	}

	v := domain.Verdict{
		IsFraud:    classifierScore.IsFraud(),
		Confidence: classifierScore.Probability,
		Reasons:    append([]string(nil), classifierScore.Reasons...),
	}

	firstMatch(e.escalation, &v, in)
	firstMatch(e.category, &v, in)
	for _, r := range e.hard {
		if r.match(in) {
			r.apply(&v, in)
		}
	}

	v.Clamp()
	if in.amount < e.thresholds.TrivialAmount && !v.IsFraud {
		if v.Confidence > e.thresholds.TrivialSafeCeiling {
			v.Confidence = e.thresholds.TrivialSafeCeiling
			v.Append("small transaction, low confidence in any risk")
		}
	}

	return v
}

// firstMatch applies at most one rule from an ordered tier.
func firstMatch(tier []rule, v *domain.Verdict, in ruleInput) {
	for _, r := range tier {
		if r.match(in) {
			r.apply(v, in)
			return
		}
	}
}

func escalationRules() []rule {
	return []rule{
		{
			name: "extreme_amount",
			match: func(in ruleInput) bool {
				return in.amount > in.thresholds.ExtremeAmount
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(in.thresholds.FraudConfidenceHigh,
					fmt.Sprintf("extremely high amount: %.0f", in.amount))
			},
		},
		{
			name: "very_high_amount_late_night",
			match: func(in ruleInput) bool {
				return in.amount > in.thresholds.VeryHighAmount && in.thresholds.IsLateNight(in.hour)
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(in.thresholds.FraudConfidenceMedium,
					"very high amount during late night hours")
			},
		},
		{
			name: "high_amount_suspicious_text",
			match: func(in ruleInput) bool {
				return in.amount > in.thresholds.HighAmount && in.features.SuspiciousCount > 0
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(in.thresholds.FraudConfidenceMedium,
					"high amount with suspicious description")
			},
		},
		{
			name: "high_amount_no_description",
			match: func(in ruleInput) bool {
				return in.amount > in.thresholds.HighAmount && !in.hasText
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(in.thresholds.FraudConfidenceLow,
					"high amount with no description")
			},
		},
		{
			name: "medium_amount_late_night_suspicious",
			match: func(in ruleInput) bool {
				return in.amount > in.thresholds.MediumAmount &&
					in.thresholds.IsLateNight(in.hour) &&
					in.features.SuspiciousCount > 0
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(in.thresholds.FraudConfidenceLow,
					"medium amount late at night with suspicious description")
			},
		},
	}
}

func categoryRules() []rule {
	return []rule{
		{
			name: "healthcare_or_emergency",
			match: func(in ruleInput) bool {
				return in.features.Category == domain.CategoryHealthcare || in.features.IsEmergency
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				if in.amount <= in.thresholds.HealthcareMaxSafe {
					v.LowerSafe(0.1, "healthcare or emergency expense within normal range")
				} else {
					v.RaiseFraud(0.7,
						fmt.Sprintf("healthcare expense unusually large: %.0f", in.amount))
				}
			},
		},
		{
			name: "transport",
			match: func(in ruleInput) bool {
				return in.features.Category == domain.CategoryTransport
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				if in.amount <= in.thresholds.TransportMaxSafe {
					v.LowerSafe(0.1, "transport expense within normal range")
				} else {
					v.Append(fmt.Sprintf("transport expense unusually large: %.0f", in.amount))
				}
			},
		},
		{
			name: "food",
			match: func(in ruleInput) bool {
				return in.features.Category == domain.CategoryFood && in.amount <= in.thresholds.FoodMaxSafe
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.LowerSafe(0.1, "food expense within normal range")
			},
		},
		{
			name: "bills",
			match: func(in ruleInput) bool {
				return in.features.Category == domain.CategoryBills && in.amount <= in.thresholds.BillsMaxSafe
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.LowerSafe(0.15, "routine bill payment")
			},
		},
	}
}

func hardRules() []rule {
	return []rule{
		{
			name: "multiple_suspicious_keywords",
			match: func(in ruleInput) bool {
				return in.features.SuspiciousCount >= 2
			},
			apply: func(v *domain.Verdict, in ruleInput) {
				v.RaiseFraud(0.8,
					fmt.Sprintf("%d suspicious keywords in description", in.features.SuspiciousCount))
			},
		},
	}
}
