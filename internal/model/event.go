package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order event types written to the outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OutboxEvent is a pending message stored alongside the write that caused it.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id"`
	AggregateID uuid.UUID       `db:"aggregate_id"`
	EventType   string          `db:"event_type"`
	Payload     json.RawMessage `db:"payload"`
	CreatedAt   time.Time       `db:"created_at"`
	SentAt      *time.Time      `db:"sent_at"`
}

// OrderEvent is the payload of every order event.
type OrderEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	UserID        uuid.UUID       `json:"user_id"`
	BusinessID    uuid.UUID       `json:"business_id"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	ItemCount     int             `json:"item_count"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewOrderEvent snapshots an order into an outbox event.
func NewOrderEvent(eventType string, o *Order, now time.Time) (*OutboxEvent, error) {
	payload, err := json.Marshal(OrderEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		BusinessID:    o.BusinessID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		ItemCount:     len(o.Items),
		OccurredAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}

	return &OutboxEvent{
		ID:          uuid.New(),
		AggregateID: o.ID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}
