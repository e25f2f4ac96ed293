package text

import (
	"math"
	"testing"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

func newTestScorer() *Scorer {
	return NewScorer(domain.DefaultThresholds())
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreSuspiciousKeywordsCapped(t *testing.T) {
	s := newTestScorer()

	got := s.Score(domain.FeatureSet{SuspiciousCount: 1, Category: domain.CategoryUnknown}, 500, 12)
	if !almostEqual(got.Probability, 0.15) {
		t.Errorf("one suspicious keyword: got %v, want 0.15", got.Probability)
	}

	// three or more keywords hit the 0.3 cap
	got = s.Score(domain.FeatureSet{SuspiciousCount: 5, Category: domain.CategoryUnknown}, 500, 12)
	if !almostEqual(got.Probability, 0.3) {
		t.Errorf("five suspicious keywords: got %v, want 0.3", got.Probability)
	}
	if len(got.Reasons) == 0 {
		t.Error("expected a reason for suspicious keywords")
	}
}

func TestScoreSafeKeywordsCapped(t *testing.T) {
	s := newTestScorer()

	// start from the suspicious cap so the safe discount is visible above zero
	fs := domain.FeatureSet{SuspiciousCount: 5, SafeCount: 2, Category: domain.CategoryUnknown}
	got := s.Score(fs, 500, 12)
	if !almostEqual(got.Probability, 0.3-0.2) {
		t.Errorf("two safe keywords: got %v, want 0.1", got.Probability)
	}

	fs.SafeCount = 10
	got = s.Score(fs, 500, 12)
	// safe discount caps at 0.4, score clamps at 0
	if got.Probability != 0 {
		t.Errorf("ten safe keywords: got %v, want 0", got.Probability)
	}
}

func TestScoreAllCapsPenalty(t *testing.T) {
	s := newTestScorer()
	got := s.Score(domain.FeatureSet{IsAllCaps: true, Category: domain.CategoryUnknown, WordCount: 2}, 500, 12)
	if !almostEqual(got.Probability, 0.2) {
		t.Errorf("all caps: got %v, want 0.2", got.Probability)
	}
}

func TestScoreTransportDiscount(t *testing.T) {
	s := newTestScorer()

	fs := domain.FeatureSet{Category: domain.CategoryTransport, SafeCount: 1, WordCount: 3}
	got := s.Score(fs, 5000, 12)
	if got.Probability != 0 {
		t.Errorf("transport discount should floor at 0, got %v", got.Probability)
	}
	if got.IsFraud() {
		t.Error("transport expense should not be labeled fraud")
	}
}

func TestScoreHealthcareForcesFloor(t *testing.T) {
	s := newTestScorer()

	// healthcare forces the score to the safe floor regardless of other signals
	fs := domain.FeatureSet{Category: domain.CategoryHealthcare, SuspiciousCount: 2, SafeCount: 1, WordCount: 3}
	got := s.Score(fs, 40000, 12)
	if !almostEqual(got.Probability, 0.05) {
		t.Errorf("healthcare: got %v, want 0.05", got.Probability)
	}
}

func TestScoreSmallFoodDiscount(t *testing.T) {
	s := newTestScorer()

	fs := domain.FeatureSet{Category: domain.CategoryFood, SuspiciousCount: 3, WordCount: 2}
	small := s.Score(fs, 450, 13)
	large := s.Score(fs, 2500, 13)
	if small.Probability >= large.Probability {
		t.Errorf("small food order should score lower: %v vs %v", small.Probability, large.Probability)
	}
}

func TestScoreRegulatedCategories(t *testing.T) {
	s := newTestScorer()

	for _, cat := range []domain.Category{domain.CategoryBills, domain.CategoryEducation} {
		fs := domain.FeatureSet{Category: cat, SafeCount: 1, WordCount: 2}
		got := s.Score(fs, 8000, 12)
		if got.Probability != 0 {
			t.Errorf("%s: got %v, want 0", cat, got.Probability)
		}
	}
}

func TestScoreLargeAmountNoDescription(t *testing.T) {
	s := newTestScorer()

	got := s.Score(domain.FeatureSet{Category: domain.CategoryUnknown}, 80000, 12)
	if !almostEqual(got.Probability, 0.25) {
		t.Errorf("empty description on large amount: got %v, want 0.25", got.Probability)
	}
	if len(got.Reasons) == 0 {
		t.Error("expected a reason for missing description")
	}

	// a small amount with no description stays neutral
	got = s.Score(domain.FeatureSet{Category: domain.CategoryUnknown}, 200, 12)
	if got.Probability != 0 {
		t.Errorf("empty description on small amount: got %v, want 0", got.Probability)
	}
}

func TestScoreSmallTransportOverride(t *testing.T) {
	s := newTestScorer()

	fs := domain.FeatureSet{Category: domain.CategoryTransport, SafeCount: 2, WordCount: 3}
	got := s.Score(fs, 350, 23)
	if !almostEqual(got.Probability, 0.05) {
		t.Errorf("small transport: got %v, want 0.05", got.Probability)
	}
	// the override replaces accumulated reasons with a single one
	if len(got.Reasons) != 1 {
		t.Errorf("small transport should carry exactly one reason, got %v", got.Reasons)
	}
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer()

	cases := []struct {
		fs     domain.FeatureSet
		amount float64
		hour   int
	}{
		{domain.FeatureSet{SuspiciousCount: 10, IsAllCaps: true, Category: domain.CategoryUnknown, WordCount: 5}, 500000, 3},
		{domain.FeatureSet{SafeCount: 10, Category: domain.CategoryTransport, WordCount: 5}, 100, 12},
		{domain.FeatureSet{}, 0, 0},
	}
	for _, c := range cases {
		got := s.Score(c.fs, c.amount, c.hour)
		if got.Probability < 0 || got.Probability > 1 {
			t.Errorf("score out of range: %v", got.Probability)
		}
		if got.Source != domain.SourceText {
			t.Errorf("unexpected source %s", got.Source)
		}
	}
}
