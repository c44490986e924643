package models

import (
	"encoding/json"
	"time"
)

// NotificationType categorises in-app notifications.
type NotificationType string

const (
	NotificationRoomAssignment   NotificationType = "room_assignment"
	NotificationPaymentApproved  NotificationType = "payment_approved"
	NotificationPaymentRejected  NotificationType = "payment_rejected"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
)

// Notification is a message persisted for a recipient.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Data        json.RawMessage  `db:"data" json:"data,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationEvent is the payload handed to the notification queue.
type NotificationEvent struct {
	RecipientID string            `json:"recipient_id"`
	Type        NotificationType  `json:"type"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
}
