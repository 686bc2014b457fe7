package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// StatsService backs the admin dashboard.
type StatsService struct {
	stats repository.StatsRepository
}

func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

func (s *StatsService) Stats(ctx context.Context, caller models.CurrentUser) (*models.StoreStats, error) {
	if !caller.IsAdmin() {
		return nil, errors.ErrForbidden
	}
	return s.stats.Stats(ctx)
}
