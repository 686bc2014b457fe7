package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
)

type PostgresStatsRepository struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresStatsRepository(db *gorm.DB, logger *logging.LoggerV2) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db, logger: logger}
}

// Stats counts active products, orders and users. Revenue excludes
// cancelled orders.
func (r *PostgresStatsRepository) Stats(ctx context.Context) (*models.StoreStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.StoreStats{}

	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&stats.TotalProducts).Error; err != nil {
		return nil, translateError(err)
	}
	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, translateError(err)
	}
	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, translateError(err)
	}

	var revenue decimal.Decimal
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status <> ?", models.OrderStatusCancelled).
		Row().Scan(&revenue)
	if err != nil {
		r.logger.Error("Failed to sum revenue", logging.Fields{"error": err.Error()})
		return nil, translateError(err)
	}
	stats.TotalRevenue = revenue

	return stats, nil
}
