package repository

import (
	"context"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresUserRepository struct {
	db     *gorm.DB
	logger *logging.LoggerV2
}

func NewPostgresUserRepository(db *gorm.DB, logger *logging.LoggerV2) *PostgresUserRepository {
	return &PostgresUserRepository{db: db, logger: logger}
}

// Upsert refreshes the profile fields of an existing user and creates new
// users as customers. The stored role is never overwritten.
func (r *PostgresUserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	row := *user
	row.Role = models.RoleCustomer
	row.CreatedAt = now
	row.UpdatedAt = now

	err := retryOnce(ctx, r.logger, "upsert user", func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "profile_image_url", "updated_at"}),
		}).Create(&row).Error
	})
	if err != nil {
		r.logger.Error("Failed to upsert user", logging.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		})
		return nil, translateError(err)
	}

	return r.GetByID(ctx, user.ID)
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}
