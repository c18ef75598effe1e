package cache

import (
	"context"
	"time"

	"tokopos/backend/internal/domain"
)

// SummaryCache holds computed dashboard summaries. Flows that commit new
// documents delete the affected key so the next read recomputes.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.YearlySummary, bool, error)
	Set(ctx context.Context, key string, value *domain.YearlySummary, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.YearlySummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.YearlySummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Delete(_ context.Context, _ string) error {
	return nil
}
