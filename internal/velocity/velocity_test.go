package velocity

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/repository"
)

func newTestService(t *testing.T) (*Service, domain.Repository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "velocity.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	t.Cleanup(func() { lru.Close() })

	return NewService(repo, lru), repo
}

func TestGetLocationCount(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		tx := &domain.Transaction{
			ID:        fmt.Sprintf("tx-%d", i),
			Amount:    100,
			Location:  "Mumbai",
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			CreatedAt: now,
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	// Outside the window
	old := &domain.Transaction{
		ID:        "tx-old",
		Amount:    100,
		Location:  "Mumbai",
		Timestamp: now.Add(-2 * time.Hour),
		CreatedAt: now,
	}
	if err := repo.SaveTransaction(ctx, old); err != nil {
		t.Fatal(err)
	}

	count, err := svc.GetLocationCount(ctx, "Mumbai", 600)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 transactions in window, got %d", count)
	}

	count, err = svc.GetLocationCount(ctx, "Delhi", 600)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for unseen location, got %d", count)
	}
}

func TestGetLocationCountValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetLocationCount(context.Background(), "", 60); err == nil {
		t.Fatal("expected error for empty location")
	}
}

func TestRecordTransaction(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := svc.RecordTransaction(ctx, "Mumbai", time.Minute)
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}
}
