package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

// Event names carried in the message header used for worker dispatch.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
)

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	ID            string               `json:"id"`
	Number        string               `json:"number"`
	UserID        string               `json:"userId"`
	SellerID      string               `json:"sellerId,omitempty"`
	Total         float64              `json:"total"`
	Currency      string               `json:"currency"`
	PaymentMethod entity.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// OrderStatusChangedEvent is emitted after every successful status transition.
type OrderStatusChangedEvent struct {
	ID      string        `json:"id"`
	Number  string        `json:"number"`
	From    entity.Status `json:"from"`
	To      entity.Status `json:"to"`
	Version int64         `json:"version"`
}

// OrderCancelledEvent is emitted when an order is cancelled.
type OrderCancelledEvent struct {
	ID      string `json:"id"`
	Number  string `json:"number"`
	Reason  string `json:"reason"`
	Version int64  `json:"version"`
}

// publish serialises and emits a lifecycle event; failures are logged and never
// fail the triggering operation.
func (s *Service) publish(ctx context.Context, event string, key string, payload any) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order event", zap.String("event", event), zap.Error(err))
		}
		return
	}
	headers := map[string]string{"event": event}
	if err := s.publisher.Publish(ctx, []byte(key), value, headers); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.String("event", event), zap.Error(err))
		}
	}
}
