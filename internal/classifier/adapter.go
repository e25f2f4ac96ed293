package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Adapter exposes a loaded model through the domain.Classifier interface,
// guarded by a circuit breaker so a corrupt or missing model degrades the
// service to its neutral prior instead of failing requests.
type Adapter struct {
	model   *Model
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewAdapter loads the model at cfg.ModelPath. A load failure is not fatal:
// the adapter stays up and reports domain.ErrClassifierUnavailable until the
// model is replaced and the process restarted.
func NewAdapter(cfg domain.ClassifierConfig, logger *slog.Logger) *Adapter {
	a := &Adapter{logger: logger}

	model, err := LoadModel(cfg.ModelPath)
	if err != nil {
		logger.Warn("classifier model unavailable, serving neutral prior",
			"path", cfg.ModelPath, "error", err)
	} else {
		a.model = model
		logger.Info("classifier model loaded",
			"path", cfg.ModelPath, "version", model.Version, "locations", len(model.Locations))
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	openSecs := cfg.BreakerOpenSecs
	if openSecs <= 0 {
		openSecs = 30
	}

	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "classifier",
		Timeout: time.Duration(openSecs) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("classifier breaker state changed",
				"from", from.String(), "to", to.String())
		},
	})

	return a
}

// Ready reports whether a model is loaded.
func (a *Adapter) Ready() bool {
	return a.model != nil
}

// Version returns the loaded model version, or empty when unavailable.
func (a *Adapter) Version() string {
	if a.model == nil {
		return ""
	}
	return a.model.Version
}

// Score runs one inference through the circuit breaker.
func (a *Adapter) Score(ctx context.Context, amount float64, location string, hour, dayOfWeek int, isWeekend bool) (domain.SignalScore, error) {
	if err := ctx.Err(); err != nil {
		return domain.SignalScore{}, err
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		if a.model == nil {
			return nil, domain.ErrClassifierUnavailable
		}
		return a.model.Predict(amount, location, hour, dayOfWeek, isWeekend), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.SignalScore{}, domain.ErrClassifierUnavailable
		}
		return domain.SignalScore{}, err
	}

	p := result.(float64)
	reasons := []string{fmt.Sprintf("model score %.3f", p)}
	return domain.NewSignalScore(domain.SourceClassifier, p, reasons), nil
}
