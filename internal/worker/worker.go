// Package worker consumes submitted transactions from the event bus and
// runs them through the decision pipeline asynchronously.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/fraudguard/internal/decision"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/velocity"
)

// TransactionMessage is the payload published on the transaction topic.
type TransactionMessage struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Location    string  `json:"location"`
	Time        int64   `json:"time"` // epoch milliseconds
	Description string  `json:"description,omitempty"`
	TraceID     string  `json:"traceId,omitempty"`
}

// Worker subscribes to submitted transactions and drives the decision
// pipeline for each one.
type Worker struct {
	bus      domain.EventBus
	pipeline *decision.Service
	velocity *velocity.Service
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs []domain.Subscription

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a worker. Call Start to begin consuming.
func New(bus domain.EventBus, pipeline *decision.Service, vel *velocity.Service, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		pipeline: pipeline,
		velocity: vel,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the transaction topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicTransactionSubmitted, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicTransactionSubmitted, err)
	}

	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()

	w.logger.Info("worker started", "topic", domain.TopicTransactionSubmitted)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	var tm TransactionMessage
	if err := json.Unmarshal(msg.Payload, &tm); err != nil {
		w.failed.Add(1)
		w.logger.Error("failed to decode transaction message",
			"message_id", msg.ID, "error", err)
		return err
	}

	if err := w.processTransaction(ctx, &tm); err != nil {
		w.failed.Add(1)
		w.logger.Error("failed to process transaction",
			"tx_id", tm.ID, "error", err)
		return err
	}

	w.processed.Add(1)
	return nil
}

func (w *Worker) processTransaction(ctx context.Context, tm *TransactionMessage) error {
	if tm.ID == "" || tm.Location == "" {
		return fmt.Errorf("transaction message missing id or location")
	}

	start := time.Now()
	tx := &domain.Transaction{
		ID:          tm.ID,
		Amount:      tm.Amount,
		Location:    tm.Location,
		Timestamp:   time.UnixMilli(tm.Time),
		CreatedAt:   start.UTC(),
		Description: tm.Description,
	}

	d, _ := w.pipeline.Evaluate(ctx, tx, tm.TraceID, start)
	w.pipeline.Commit(ctx, tx, d)

	if w.velocity != nil {
		if _, err := w.velocity.RecordTransaction(ctx, tx.Location, time.Hour); err != nil {
			w.logger.Warn("failed to record velocity",
				"location", tx.Location, "error", err)
		}
	}

	w.logger.Info("transaction processed",
		"tx_id", tx.ID,
		"decision_id", d.ID,
		"fraud", d.Fraud,
		"confidence", d.Confidence,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Stop unsubscribes and waits for in-flight messages to finish.
func (w *Worker) Stop() {
	w.cancel()

	w.mu.Lock()
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Warn("failed to unsubscribe", "topic", sub.Topic(), "error", err)
		}
	}

	w.wg.Wait()
	w.logger.Info("worker stopped",
		"processed", w.processed.Load(), "failed", w.failed.Load())
}

// Stats reports message counters.
func (w *Worker) Stats() map[string]int64 {
	return map[string]int64{
		"processed": w.processed.Load(),
		"failed":    w.failed.Load(),
	}
}
