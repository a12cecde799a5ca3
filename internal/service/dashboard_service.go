package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type dashboardRepository interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardService serves the aggregate snapshot, cached briefly since every
// admin session polls it.
type DashboardService struct {
	repo   dashboardRepository
	cache  inventoryCache
	logger *zap.Logger
	ttl    time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache inventoryCache, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

// Stats returns the dashboard snapshot.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	key := repository.Key(repository.CacheGroupDashboard, "stats")
	if s.cache != nil {
		var cached models.DashboardStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
		}
	}
	return stats, nil
}
