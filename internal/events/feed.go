package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/service"
)

var _ service.OrderEventPublisher = (*FeedHub)(nil)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedSendBuffer = 32
)

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// FeedHub pushes order events to connected admin dashboards over websocket.
// Clients that fall behind are disconnected.
type FeedHub struct {
	mu       sync.Mutex
	clients  map[*feedClient]struct{}
	upgrader websocket.Upgrader
	logger   *logging.LoggerV2
}

// NewFeedHub creates a hub accepting the given origins; "*" accepts any.
func NewFeedHub(allowedOrigins []string, logger *logging.LoggerV2) *FeedHub {
	h := &FeedHub{
		clients: make(map[*feedClient]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Serve upgrades the request and blocks until the client disconnects.
func (h *FeedHub) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	h.register(client)

	go h.writePump(client)
	h.readPump(client)
	return nil
}

func (h *FeedHub) register(client *feedClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.FeedClients.Inc()
	h.logger.Info("Feed client connected", logging.Fields{"clients": count})
}

func (h *FeedHub) unregister(client *feedClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if ok {
		metrics.FeedClients.Dec()
		h.logger.Info("Feed client disconnected")
	}
}

// readPump discards client messages and detects disconnects.
func (h *FeedHub) readPump(client *feedClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) writePump(client *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast queues msg for every client without blocking.
func (h *FeedHub) Broadcast(msg []byte) {
	h.mu.Lock()
	var slow []*feedClient
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		h.logger.Warn("Dropping slow feed client")
		h.unregister(client)
	}
}

func (h *FeedHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *FeedHub) Close() {
	h.mu.Lock()
	clients := make([]*feedClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.unregister(client)
	}
}

func (h *FeedHub) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	return h.publish(ctx, EventTypeOrderCreated, order, "")
}

func (h *FeedHub) PublishOrderStatusChanged(ctx context.Context, order *models.Order, previous models.OrderStatus) error {
	return h.publish(ctx, EventTypeOrderStatusChanged, order, previous)
}

func (h *FeedHub) publish(ctx context.Context, eventType EventType, order *models.Order, previous models.OrderStatus) error {
	if h.ClientCount() == 0 {
		return nil
	}

	event, err := NewOrderEvent(ctx, eventType, order, previous)
	if err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.Broadcast(data)
	return nil
}
