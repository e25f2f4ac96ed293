// Package velocity provides transaction velocity calculation.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Service counts recent transactions per location. The count feeds the
// advisory rules' velocity_count variable.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new velocity service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// GetLocationCount returns the number of transactions seen for a location
// within the time window.
func (s *Service) GetLocationCount(ctx context.Context, location string, windowSecs int) (int64, error) {
	if location == "" {
		return 0, fmt.Errorf("location is required")
	}
	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)

	txs, err := s.repo.GetTransactionsByLocation(ctx, location, since)
	if err != nil {
		return 0, fmt.Errorf("failed to get transactions: %w", err)
	}
	return int64(len(txs)), nil
}

// RecordTransaction bumps the cache-side counter for a location. Used where
// the distributed counter is preferred over a repository scan.
func (s *Service) RecordTransaction(ctx context.Context, location string, window time.Duration) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.IncrementCounter(ctx, "velocity:"+location, window)
}
