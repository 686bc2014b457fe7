package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

func TestHTTPNotificationClient_SendNotification(t *testing.T) {
	var (
		gotPath   string
		gotAuth   string
		gotReqID  string
		gotNotice models.Notification
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(middleware.HeaderRequestID)
		json.NewDecoder(r.Body).Decode(&gotNotice)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewHTTPNotificationClient(config.ServiceConfig{
		BaseURL: srv.URL + "/",
		Timeout: time.Second,
		APIKey:  "secret",
	}, logging.NewLoggerV2("test"))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-9")
	err := client.SendNotification(ctx, &models.Notification{
		UserID:  "user-1",
		Type:    models.NotificationTypeOrderShipped,
		Channel: "email",
		Subject: "Order Shipped",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v2/notifications", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "req-9", gotReqID)
	assert.Equal(t, "user-1", gotNotice.UserID)
	assert.Equal(t, models.NotificationTypeOrderShipped, gotNotice.Type)
}

func TestHTTPNotificationClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("queue full\n"))
	}))
	defer srv.Close()

	client := NewHTTPNotificationClient(config.ServiceConfig{BaseURL: srv.URL, Timeout: time.Second}, logging.NewLoggerV2("test"))

	err := client.SendNotification(context.Background(), &models.Notification{UserID: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "queue full")
}
