package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// ModelWeights holds the logistic regression coefficients. Feature order
// matches the training pipeline: amount, location code, hour, day of week,
// weekend flag.
type ModelWeights struct {
	Amount       float64 `json:"amount"`
	LocationCode float64 `json:"location_code"`
	Hour         float64 `json:"hour"`
	DayOfWeek    float64 `json:"day_of_week"`
	IsWeekend    float64 `json:"is_weekend"`
}

// Model is a serialized logistic classifier loaded from a JSON weight file.
type Model struct {
	Version     string       `json:"version"`
	Bias        float64      `json:"bias"`
	Weights     ModelWeights `json:"weights"`
	AmountScale float64      `json:"amount_scale"`
	Locations   []string     `json:"locations"`

	locationIndex map[string]int
}

// LoadModel reads and validates a weight file produced by the training job.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}

	if m.AmountScale <= 0 {
		m.AmountScale = 1
	}

	m.locationIndex = make(map[string]int, len(m.Locations))
	for i, loc := range m.Locations {
		m.locationIndex[strings.ToLower(loc)] = i
	}

	return &m, nil
}

// locationCode returns the training-time integer encoding of a location.
// Locations never seen in training get the median known code so a single
// unknown city cannot dominate the score.
func (m *Model) locationCode(location string) int {
	if code, ok := m.locationIndex[strings.ToLower(location)]; ok {
		return code
	}
	return len(m.Locations) / 2
}

// Predict computes the fraud probability for one transaction.
func (m *Model) Predict(amount float64, location string, hour, dayOfWeek int, isWeekend bool) float64 {
	weekend := 0.0
	if isWeekend {
		weekend = 1.0
	}

	z := m.Bias +
		m.Weights.Amount*(amount/m.AmountScale) +
		m.Weights.LocationCode*float64(m.locationCode(location)) +
		m.Weights.Hour*float64(hour) +
		m.Weights.DayOfWeek*float64(dayOfWeek) +
		m.Weights.IsWeekend*weekend

	return 1.0 / (1.0 + math.Exp(-z))
}
