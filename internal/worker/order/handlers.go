package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bazaarlabs/bazaar/internal/messaging"
	ordersvc "github.com/bazaarlabs/bazaar/internal/service/order"
	"github.com/bazaarlabs/bazaar/internal/worker"
)

var workerTracer = otel.Tracer("github.com/bazaarlabs/bazaar/worker/order")

// Module registers order lifecycle worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderCreatedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewStatusChangedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewOrderCancelledHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderCreatedHandler logs newly created orders for downstream bookkeeping.
func NewOrderCreatedHandler(logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.created", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order created", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order created event processed",
			zap.String("id", event.ID),
			zap.String("number", event.Number),
			zap.Float64("total", event.Total),
			zap.String("currency", event.Currency),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Event:   ordersvc.EventOrderCreated,
		Handler: handler,
	}
}

// NewStatusChangedHandler records status transitions.
func NewStatusChangedHandler(logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.status_changed", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode status change", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order status change processed",
			zap.String("id", event.ID),
			zap.String("number", event.Number),
			zap.String("from", string(event.From)),
			zap.String("to", string(event.To)),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Event:   ordersvc.EventOrderStatusChanged,
		Handler: handler,
	}
}

// NewOrderCancelledHandler records cancellations.
func NewOrderCancelledHandler(logger *zap.Logger) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.cancelled", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderCancelledEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode cancellation", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("order cancellation processed",
			zap.String("id", event.ID),
			zap.String("number", event.Number),
			zap.String("reason", event.Reason),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Event:   ordersvc.EventOrderCancelled,
		Handler: handler,
	}
}
