package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

// Ensure HTTPNotificationClient implements service.NotificationSender
var _ service.NotificationSender = (*HTTPNotificationClient)(nil)

// HTTPNotificationClient delivers order notifications through the
// notification service.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.LoggerV2
}

// notificationsPath is the notification service's delivery endpoint.
const notificationsPath = "/api/v2/notifications"

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// SendNotification posts n to the notification service. Any non-2xx
// response is returned as an error carrying the status and a body excerpt.
func (c *HTTPNotificationClient) SendNotification(ctx context.Context, n *models.Notification) error {
	fields := logging.Fields{
		"user_id":  n.UserID,
		"type":     n.Type,
		"order_id": n.Metadata["order_id"],
	}
	c.logger.Debug("Delivering order notification", fields)

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+notificationsPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	c.setHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Notification service unreachable", logging.Fields{
			"order_id": n.Metadata["order_id"],
			"error":    err.Error(),
		})
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("notification service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	io.Copy(io.Discard, resp.Body)

	c.logger.Info("Order notification delivered", fields)
	return nil
}

func (c *HTTPNotificationClient) setHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}
}
