package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}
}

func TestLRUMissReturnsNil(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	val, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil on miss, got %s", val)
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != nil {
		t.Error("expected expired entry to be gone")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("key%d", i), []byte("v"), time.Minute)
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected size 3/3, got %d/%d", size, capacity)
	}

	// Oldest entries were evicted
	if val, _ := c.Get(ctx, "key0"); val != nil {
		t.Error("key0 should have been evicted")
	}
	if val, _ := c.Get(ctx, "key4"); val == nil {
		t.Error("key4 should still be present")
	}
}

func TestLRUEvictionRespectsRecency(t *testing.T) {
	c := NewLRUCache(2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"), time.Minute)

	if val, _ := c.Get(ctx, "a"); val == nil {
		t.Error("recently used key should survive eviction")
	}
	if val, _ := c.Get(ctx, "b"); val != nil {
		t.Error("least recently used key should be evicted")
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if val, _ := c.Get(ctx, "key1"); val != nil {
		t.Error("deleted key should be gone")
	}
}

func TestDecisionRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	category := "transport"
	resp := &domain.DecisionResponse{
		DecisionID: "dec-1",
		Fraud:      false,
		Confidence: 0.1,
		DescriptionAnalysis: domain.DescriptionAnalysis{
			Reasons:  []string{"transport expense within normal range"},
			Category: &category,
		},
		OriginalPrediction: domain.OriginalPrediction{Fraud: false, Confidence: 0.3},
	}

	fp := Fingerprint(1500, "Mumbai", 1760400000000, "Uber ride home")
	if err := c.SetDecision(ctx, fp, resp, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.GetDecision(ctx, fp)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a cached decision")
	}
	if got.DecisionID != "dec-1" || got.Confidence != 0.1 {
		t.Errorf("unexpected decision %+v", got)
	}
	if got.DescriptionAnalysis.Category == nil || *got.DescriptionAnalysis.Category != "transport" {
		t.Errorf("unexpected category %v", got.DescriptionAnalysis.Category)
	}
}

func TestGetDecisionMiss(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	got, err := c.GetDecision(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %+v", got)
	}
}

func TestIncrementCounter(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrementCounter(ctx, "loc:Mumbai", time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	// Separate keys count independently
	got, _ := c.IncrementCounter(ctx, "loc:Delhi", time.Minute)
	if got != 1 {
		t.Errorf("expected independent counter, got %d", got)
	}
}

func TestIncrementCounterWindowReset(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.IncrementCounter(ctx, "w", 10*time.Millisecond)
	c.IncrementCounter(ctx, "w", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	got, err := c.IncrementCounter(ctx, "w", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected window reset to 1, got %d", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(1500, "Mumbai", 1760400000000, "Uber ride home")
	b := Fingerprint(1500, "Mumbai", 1760400000000, "Uber ride home")
	if a != b {
		t.Error("identical requests must share a fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}

	variants := []string{
		Fingerprint(1501, "Mumbai", 1760400000000, "Uber ride home"),
		Fingerprint(1500, "Delhi", 1760400000000, "Uber ride home"),
		Fingerprint(1500, "Mumbai", 1760400000001, "Uber ride home"),
		Fingerprint(1500, "Mumbai", 1760400000000, "Uber ride"),
	}
	for i, v := range variants {
		if v == a {
			t.Errorf("variant %d should not collide", i)
		}
	}
}

func TestNewUnsupportedType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Fatal("expected error for unsupported cache type")
	}
}

func TestNewMemory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
