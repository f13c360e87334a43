package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
)

const (
	defaultDashboardDays = 7
	maxDashboardDays     = 365
)

type dashboardAPI interface {
	DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error)
}

// DashboardService serves the staff dashboard numbers through the read cache.
type DashboardService struct {
	api    dashboardAPI
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(api dashboardAPI, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{api: api, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns the aggregates for the last days days; out-of-range values fall back to a week.
func (s *DashboardService) Stats(ctx context.Context, days int) (*models.DashboardStats, error) {
	if days <= 0 || days > maxDashboardDays {
		days = defaultDashboardDays
	}
	return cached(ctx, s.cache, cacheKeyDashboard+strconv.Itoa(days), s.ttl, func(ctx context.Context) (*models.DashboardStats, error) {
		stats, err := s.api.DashboardStats(ctx, days)
		if err != nil {
			return nil, portalapi.AsAppError(err)
		}
		if stats.Stats.TotalPermohonan == 0 {
			stats.Stats.TotalPermohonan = stats.Stats.PermohonanBaru + stats.Stats.PermohonanProses +
				stats.Stats.PermohonanSelesai + stats.Stats.PermohonanDitolak
		}
		return stats, nil
	})
}
