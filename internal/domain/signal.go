package domain

// SignalSource identifies which estimator produced a SignalScore.
type SignalSource string

const (
	SourceClassifier SignalSource = "classifier"
	SourceText       SignalSource = "text"
)

// Signal labels.
const (
	LabelFraud = "fraud"
	LabelSafe  = "safe"
)

// SignalScore is an independent fraud probability estimate from one source,
// together with the ordered reasons that produced it.
type SignalScore struct {
	Probability float64      `json:"probability"`
	Label       string       `json:"label"`
	Source      SignalSource `json:"source"`
	Reasons     []string     `json:"reasons,omitempty"`
}

// IsFraud reports whether the signal labeled the transaction fraudulent.
func (s SignalScore) IsFraud() bool {
	return s.Label == LabelFraud
}

// NewSignalScore builds a labeled score; the label follows the 0.5 cutoff.
func NewSignalScore(source SignalSource, probability float64, reasons []string) SignalScore {
	label := LabelSafe
	if probability > 0.5 {
		label = LabelFraud
	}
	return SignalScore{
		Probability: probability,
		Label:       label,
		Source:      source,
		Reasons:     reasons,
	}
}
