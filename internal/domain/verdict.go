package domain

import "time"

// Verdict is the mutable working value threaded through rule evaluation:
// the running fraud flag, confidence and append-only reasons trail. It is
// owned by exactly one request-scoped evaluation and frozen into a Decision
// once the engine finishes.
type Verdict struct {
	IsFraud    bool
	Confidence float64
	Reasons    []string
}

// Append adds a reason to the trail. Reasons are never removed.
func (v *Verdict) Append(reason string) {
	v.Reasons = append(v.Reasons, reason)
}

// RaiseFraud forces the verdict to fraud and raises confidence to at least
// floor. Confidence combines via max, never a blind overwrite.
func (v *Verdict) RaiseFraud(floor float64, reason string) {
	v.IsFraud = true
	if v.Confidence < floor {
		v.Confidence = floor
	}
	v.Append(reason)
}

// LowerSafe forces the verdict to safe and lowers confidence to at most
// ceiling. Confidence combines via min.
func (v *Verdict) LowerSafe(ceiling float64, reason string) {
	v.IsFraud = false
	if v.Confidence > ceiling {
		v.Confidence = ceiling
	}
	v.Append(reason)
}

// Clamp bounds confidence into [0,1].
func (v *Verdict) Clamp() {
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
}

// Decision is the persisted, frozen outcome of one evaluation.
type Decision struct {
	ID        string    `json:"id"`
	TxID      string    `json:"txId"`
	Fraud     bool      `json:"fraud"`
	Confidence float64  `json:"confidence"`
	Reasons   []string  `json:"reasons"`
	Category  Category  `json:"category"`
	Timestamp time.Time `json:"timestamp"`

	// Independent signals, kept for audit
	ClassifierScore SignalScore `json:"classifierScore"`
	TextScore       SignalScore `json:"textScore"`

	// Advisory flags from configurable rules (never alter the verdict)
	Flags []RuleFlag `json:"flags,omitempty"`

	Metadata DecisionMetadata `json:"metadata"`
}

// DecisionMetadata carries processing information for one decision.
type DecisionMetadata struct {
	TraceID       string `json:"traceId"`
	DecisionMs    int64  `json:"decisionMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// DescriptionAnalysis is the text-signal section of the API response.
type DescriptionAnalysis struct {
	Reasons  []string   `json:"reasons"`
	Features FeatureSet `json:"features"`
	Category *string    `json:"category"`
}

// OriginalPrediction mirrors the raw classifier output in the API response.
type OriginalPrediction struct {
	Fraud      bool    `json:"fraud"`
	Confidence float64 `json:"confidence"`
}

// DecisionResponse is the API response for POST /predict.
type DecisionResponse struct {
	DecisionID          string              `json:"decisionId"`
	Fraud               bool                `json:"fraud"`
	Confidence          float64             `json:"confidence"`
	DescriptionAnalysis DescriptionAnalysis `json:"description_analysis"`
	OriginalPrediction  OriginalPrediction  `json:"original_prediction"`
	Flags               []RuleFlag          `json:"flags,omitempty"`
	Metadata            DecisionMetadata    `json:"metadata"`
}
