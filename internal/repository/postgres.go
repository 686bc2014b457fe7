package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	pqCheckViolation      = "23514"
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
)

// OpenGorm wraps an existing lib/pq connection pool.
func OpenGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
}

// AutoMigrate creates or updates the storefront tables.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	logging.Info("Running schema migration")
	return db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

// translateError maps driver and gorm errors onto the shared error values.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqCheckViolation:
			return errors.NewConflictError("constraint violated").WithDetail("constraint", pqErr.Constraint)
		case pqUniqueViolation:
			return errors.NewConflictError("duplicate record").WithDetail("constraint", pqErr.Constraint)
		case pqForeignKeyViolation:
			return errors.NewConflictError("referenced record does not exist").WithDetail("constraint", pqErr.Constraint)
		}
	}
	return err
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFail || pqErr.Code == pqDeadlockDetected
	}
	return false
}

// retryOnce runs fn again when the first attempt hit a transient failure.
func retryOnce(ctx context.Context, logger *logging.LoggerV2, op string, fn func() error) error {
	err := fn()
	if !isTransient(err) || ctx.Err() != nil {
		return err
	}

	logger.Warn("Retrying after transient database error", logging.Fields{
		"operation": op,
		"error":     err.Error(),
	})

	if err = fn(); isTransient(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return err
}
