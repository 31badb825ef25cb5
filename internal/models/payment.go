package models

import "time"

// PaymentStatus represents the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Terminal reports whether no further transition is permitted from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// PaymentRecord tracks one outstanding payment request from creation until
// the user has been notified about its outcome.
type PaymentRecord struct {
	ID          string            `json:"id"`
	ChatID      int64             `json:"chat_id"`
	MessageID   int               `json:"message_id"`
	RequesterID int64             `json:"requester_id"`
	Amount      float64           `json:"amount"`
	Status      PaymentStatus     `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	GatewayMeta map[string]string `json:"gateway_meta,omitempty"`
}
