package models

import "time"

const OrderConfirmedPattern = "order.confirmed"

// OrderEvent is published once a checkout commits.
type OrderEvent struct {
	Pattern   string    `json:"pattern"`
	SessionID string    `json:"session_id"`
	Bill      Bill      `json:"bill"`
	CreatedAt time.Time `json:"created_at"`
}
