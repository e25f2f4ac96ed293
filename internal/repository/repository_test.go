package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTx(id string, amount float64, location string, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:          id,
		Amount:      amount,
		Location:    location,
		Description: "Uber ride home",
		Timestamp:   ts,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(domain.RepositoryConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Date(2025, 10, 14, 3, 0, 0, 0, time.UTC)
	if err := repo.SaveTransaction(ctx, testTx("tx-1", 1500, "Mumbai", ts)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Amount != 1500 || got.Location != "Mumbai" || got.Description != "Uber ride home" {
		t.Errorf("unexpected transaction %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTransaction(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveTransactionValidation(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.SaveTransaction(context.Background(), &domain.Transaction{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetTransactionsByLocation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)
	txs := []*domain.Transaction{
		testTx("tx-1", 100, "Mumbai", base.Add(-10*time.Minute)),
		testTx("tx-2", 200, "Mumbai", base.Add(-2*time.Hour)),
		testTx("tx-3", 300, "Delhi", base.Add(-5*time.Minute)),
		testTx("tx-4", 400, "Mumbai", base.Add(-1*time.Minute)),
	}
	for _, tx := range txs {
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("save %s: %v", tx.ID, err)
		}
	}

	got, err := repo.GetTransactionsByLocation(ctx, "Mumbai", base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	// newest first
	if got[0].ID != "tx-4" || got[1].ID != "tx-1" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestDecisionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := &domain.Decision{
		ID:         "dec-1",
		TxID:       "tx-1",
		Fraud:      true,
		Confidence: 0.85,
		Reasons:    []string{"extremely high amount: 250000"},
		Category:   domain.CategoryUnknown,
		Timestamp:  time.Date(2025, 10, 14, 3, 0, 0, 0, time.UTC),
		ClassifierScore: domain.NewSignalScore(domain.SourceClassifier, 0.3,
			[]string{"model score 0.300"}),
		TextScore: domain.NewSignalScore(domain.SourceText, 0.25,
			[]string{"high amount with no description"}),
		Flags: []domain.RuleFlag{
			{RuleID: "weekend-high-amount", Name: "Weekend High Amount", Reason: "large weekend transaction"},
		},
		Metadata: domain.DecisionMetadata{
			TraceID:       "trace-1",
			TotalMs:       12,
			EngineVersion: "fraudguard-1.0",
		},
	}

	if err := repo.SaveDecision(ctx, d); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.GetDecision(ctx, "dec-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !got.Fraud || got.Confidence != 0.85 {
		t.Errorf("unexpected verdict %v/%v", got.Fraud, got.Confidence)
	}
	if len(got.Reasons) != 1 || got.Reasons[0] != "extremely high amount: 250000" {
		t.Errorf("unexpected reasons %v", got.Reasons)
	}
	if got.ClassifierScore.Probability != 0.3 || got.TextScore.Probability != 0.25 {
		t.Errorf("unexpected scores %+v / %+v", got.ClassifierScore, got.TextScore)
	}
	if len(got.Flags) != 1 || got.Flags[0].RuleID != "weekend-high-amount" {
		t.Errorf("unexpected flags %v", got.Flags)
	}
	if got.Metadata.TraceID != "trace-1" {
		t.Errorf("unexpected metadata %+v", got.Metadata)
	}
}

func TestGetDecisionNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetDecision(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRuleConfigUpsertAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.RuleConfig{
		ID:         "velocity-burst",
		Name:       "Velocity Burst",
		Version:    "1",
		Expression: "velocity_count > 5",
		Reason:     "burst of transactions from one location",
		Enabled:    true,
	}
	if err := repo.SaveRuleConfig(ctx, rule); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Same id+version updates in place.
	rule.Expression = "velocity_count > 10"
	if err := repo.SaveRuleConfig(ctx, rule); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := repo.GetRuleConfig(ctx, "velocity-burst")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Expression != "velocity_count > 10" {
		t.Errorf("upsert did not replace expression: %q", got.Expression)
	}

	disabled := &domain.RuleConfig{
		ID:         "off",
		Name:       "Off",
		Version:    "1",
		Expression: "true",
		Enabled:    false,
	}
	if err := repo.SaveRuleConfig(ctx, disabled); err != nil {
		t.Fatalf("save disabled failed: %v", err)
	}

	configs, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(configs) != 1 || configs[0].ID != "velocity-burst" {
		t.Errorf("list should return only enabled rules: %+v", configs)
	}

	if _, err := repo.GetRuleConfig(ctx, "off"); !errors.Is(err, ErrNotFound) {
		t.Errorf("disabled rule should be not found, got %v", err)
	}
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}
