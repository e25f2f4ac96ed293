// Package domain defines the core types and interfaces for FraudGuard.
package domain

import (
	"time"
)

// Transaction is a single inbound transaction to be scored.
// It is immutable once constructed: created per request, discarded after
// the decision is returned.
type Transaction struct {
	ID string `json:"id"`

	// Financial details
	Amount   float64 `json:"amount"`
	Location string  `json:"location"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// Optional free-text description, empty when absent
	Description string `json:"description,omitempty"`
}

// Hour returns the hour-of-day [0,23] of the transaction.
func (t *Transaction) Hour() int {
	return t.Timestamp.Hour()
}

// DayOfWeek returns the weekday [0,6] with Monday = 0.
func (t *Transaction) DayOfWeek() int {
	// time.Weekday has Sunday = 0; the classifier feature vector is
	// Monday-based like the training pipeline.
	return (int(t.Timestamp.Weekday()) + 6) % 7
}

// IsWeekend reports whether the transaction falls on Saturday or Sunday.
func (t *Transaction) IsWeekend() bool {
	return t.DayOfWeek() >= 5
}

// PredictRequest is the API request payload for transaction scoring.
// Amount, Location and Time are required; Description is optional.
// Pointer fields distinguish "absent" from zero values so validation can
// name the missing field.
type PredictRequest struct {
	Amount      *float64 `json:"amount"`
	Location    *string  `json:"location"`
	Time        *int64   `json:"time"` // epoch milliseconds
	Description string   `json:"description,omitempty"`
}

// ToTransaction converts a validated request into a Transaction.
func (r *PredictRequest) ToTransaction(id string) *Transaction {
	return &Transaction{
		ID:          id,
		Amount:      *r.Amount,
		Location:    *r.Location,
		Timestamp:   time.UnixMilli(*r.Time),
		CreatedAt:   time.Now().UTC(),
		Description: r.Description,
	}
}
