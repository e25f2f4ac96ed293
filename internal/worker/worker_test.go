package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/bus"
	"github.com/opensource-finance/fraudguard/internal/classifier"
	"github.com/opensource-finance/fraudguard/internal/decision"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/engine"
	"github.com/opensource-finance/fraudguard/internal/repository"
	"github.com/opensource-finance/fraudguard/internal/text"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testHarness struct {
	worker *Worker
	bus    *bus.ChannelBus
	repo   domain.Repository

	decisions chan *domain.Decision
	alerts    chan *domain.Decision
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "worker.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(16)
	t.Cleanup(func() { eventBus.Close() })

	thresholds := domain.DefaultThresholds()
	pipeline := decision.NewService(decision.Deps{
		Thresholds: thresholds,
		Scorer:     text.NewScorer(thresholds),
		Engine:     engine.New(thresholds),
		Classifier: classifier.NewAdapter(domain.ClassifierConfig{}, discardLogger()),
		Repo:       repo,
		Bus:        eventBus,
		Logger:     discardLogger(),
	})

	h := &testHarness{
		worker:    New(eventBus, pipeline, nil, discardLogger()),
		bus:       eventBus,
		repo:      repo,
		decisions: make(chan *domain.Decision, 4),
		alerts:    make(chan *domain.Decision, 4),
	}

	ctx := context.Background()
	if _, err := eventBus.Subscribe(ctx, domain.TopicDecision, h.collect(h.decisions)); err != nil {
		t.Fatalf("failed to subscribe to decisions: %v", err)
	}
	if _, err := eventBus.Subscribe(ctx, domain.TopicAlert, h.collect(h.alerts)); err != nil {
		t.Fatalf("failed to subscribe to alerts: %v", err)
	}

	if err := h.worker.Start(); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(h.worker.Stop)

	return h
}

func (h *testHarness) collect(ch chan *domain.Decision) domain.MessageHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		var d domain.Decision
		if err := json.Unmarshal(msg.Payload, &d); err != nil {
			return err
		}
		ch <- &d
		return nil
	}
}

func (h *testHarness) submit(t *testing.T, tm *TransactionMessage) {
	t.Helper()
	payload, err := json.Marshal(tm)
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	if err := h.bus.Publish(context.Background(), domain.TopicTransactionSubmitted, payload); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
}

func waitDecision(t *testing.T, ch chan *domain.Decision) *domain.Decision {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for decision")
		return nil
	}
}

func noonMillis() int64 {
	return time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func TestWorkerFraudTransaction(t *testing.T) {
	h := newTestHarness(t)

	h.submit(t, &TransactionMessage{
		ID:       "tx-fraud-1",
		Amount:   250000,
		Location: "Mumbai",
		Time:     noonMillis(),
		TraceID:  "trace-1",
	})

	d := waitDecision(t, h.decisions)
	if d.TxID != "tx-fraud-1" {
		t.Errorf("TxID = %q, want tx-fraud-1", d.TxID)
	}
	if !d.Fraud {
		t.Error("expected fraud verdict for extreme amount")
	}
	if d.Confidence < 0.85 {
		t.Errorf("Confidence = %v, want >= 0.85", d.Confidence)
	}
	found := false
	for _, r := range d.Reasons {
		if strings.Contains(r, "extremely high amount") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing escalation reason in %v", d.Reasons)
	}
	if d.Metadata.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", d.Metadata.TraceID)
	}

	// Fraud also fans out on the alert topic.
	alert := waitDecision(t, h.alerts)
	if alert.ID != d.ID {
		t.Errorf("alert decision ID = %q, want %q", alert.ID, d.ID)
	}

	// Both the transaction and the decision were persisted before publish.
	ctx := context.Background()
	tx, err := h.repo.GetTransaction(ctx, "tx-fraud-1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.Amount != 250000 {
		t.Errorf("stored amount = %v, want 250000", tx.Amount)
	}
	stored, err := h.repo.GetDecision(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if !stored.Fraud {
		t.Error("stored decision should be fraud")
	}
}

func TestWorkerSafeTransactionNoAlert(t *testing.T) {
	h := newTestHarness(t)

	h.submit(t, &TransactionMessage{
		ID:          "tx-safe-1",
		Amount:      450,
		Location:    "Delhi",
		Time:        noonMillis(),
		Description: "Uber ride to office",
	})

	d := waitDecision(t, h.decisions)
	if d.Fraud {
		t.Errorf("expected safe verdict, got fraud with reasons %v", d.Reasons)
	}
	if d.Confidence > 0.1 {
		t.Errorf("Confidence = %v, want <= 0.1", d.Confidence)
	}

	select {
	case alert := <-h.alerts:
		t.Errorf("unexpected alert for safe transaction: %+v", alert)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWorkerClassifierFallback(t *testing.T) {
	// The harness classifier has no model, so every decision runs on the
	// neutral prior and the response records the substitution.
	h := newTestHarness(t)

	h.submit(t, &TransactionMessage{
		ID:       "tx-prior-1",
		Amount:   5000,
		Location: "Chennai",
		Time:     noonMillis(),
	})

	d := waitDecision(t, h.decisions)
	if d.ClassifierScore.Probability != domain.DefaultThresholds().NeutralPrior {
		t.Errorf("classifier probability = %v, want neutral prior", d.ClassifierScore.Probability)
	}
	if len(d.ClassifierScore.Reasons) == 0 ||
		!strings.Contains(d.ClassifierScore.Reasons[0], "neutral prior") {
		t.Errorf("classifier reasons = %v, want neutral prior note", d.ClassifierScore.Reasons)
	}
}

func TestWorkerBadPayload(t *testing.T) {
	h := newTestHarness(t)

	if err := h.bus.Publish(context.Background(), domain.TopicTransactionSubmitted, []byte("{not json")); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
	// Missing id is rejected before the pipeline runs.
	h.submit(t, &TransactionMessage{Amount: 100, Location: "Mumbai", Time: noonMillis()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.worker.Stats()["failed"] == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("failed count = %d, want 2", h.worker.Stats()["failed"])
}

func TestWorkerStop(t *testing.T) {
	h := newTestHarness(t)
	h.worker.Stop()

	h.submit(t, &TransactionMessage{
		ID:       "tx-after-stop",
		Amount:   250000,
		Location: "Mumbai",
		Time:     noonMillis(),
	})

	select {
	case d := <-h.decisions:
		t.Errorf("unexpected decision after stop: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}
