package models

type NotificationType string

const (
	NotificationTypeOrderConfirmation NotificationType = "order_confirmation"
	NotificationTypeOrderShipped      NotificationType = "order_shipped"
	NotificationTypeOrderDelivered    NotificationType = "order_delivered"
	NotificationTypeOrderCancelled    NotificationType = "order_cancelled"
)

// Notification is the payload accepted by the notification service.
type Notification struct {
	UserID   string            `json:"user_id"`
	Type     NotificationType  `json:"type"`
	Channel  string            `json:"channel"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
