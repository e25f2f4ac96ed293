package domain

import (
	"context"
	"errors"
)

// ErrClassifierUnavailable is returned by a Classifier when no usable model
// is loaded or inference failed. Callers substitute the configured neutral
// prior instead of failing the decision.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// Classifier scores a transaction's structured attributes. Implementations
// must tolerate unseen location tokens by falling back to a neutral median
// encoding rather than erroring.
type Classifier interface {
	Score(ctx context.Context, amount float64, location string, hour, dayOfWeek int, isWeekend bool) (SignalScore, error)
}
