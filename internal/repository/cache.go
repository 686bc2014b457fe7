package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

const (
	productKeyPrefix = "product:"
	defaultCacheTTL  = 5 * time.Minute
)

// RedisProductCache caches single products by id.
type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

// NewRedisProductCache creates a new Redis-based product cache.
func NewRedisProductCache(cfg config.RedisConfig) *RedisProductCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisProductCache(client, cfg.TTL)
}

func newRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &RedisProductCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("product-cache"),
	}
}

func productKey(id uint) string {
	return productKeyPrefix + strconv.FormatUint(uint64(id), 10)
}

// Get retrieves a product from cache.
func (c *RedisProductCache) Get(ctx context.Context, id uint) (*models.Product, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err == redis.Nil {
		metrics.ProductCacheRequestsTotal.WithLabelValues("miss").Inc()
		c.logger.Debug("Cache miss", logging.Fields{"product_id": id})
		return nil, nil
	}
	if err != nil {
		metrics.ProductCacheRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Error("Cache get error", logging.Fields{
			"product_id": id,
			"error":      err.Error(),
		})
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, err
	}

	metrics.ProductCacheRequestsTotal.WithLabelValues("hit").Inc()
	return &product, nil
}

// Set stores a product in cache.
func (c *RedisProductCache) Set(ctx context.Context, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, productKey(product.ID), data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{
			"product_id": product.ID,
			"error":      err.Error(),
		})
		return err
	}
	return nil
}

// Delete removes products from cache.
func (c *RedisProductCache) Delete(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("Cache delete error", logging.Fields{
			"product_ids": ids,
			"error":       err.Error(),
		})
		return err
	}

	c.logger.Debug("Products evicted from cache", logging.Fields{"product_ids": ids})
	return nil
}

// Ping checks connectivity for readiness checks.
func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisProductCache) Close() error {
	return c.client.Close()
}
