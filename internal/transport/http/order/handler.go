package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bazaarlabs/bazaar/internal/dto"
	"github.com/bazaarlabs/bazaar/internal/entity"
	"github.com/bazaarlabs/bazaar/internal/presentation/http/response"
	repo "github.com/bazaarlabs/bazaar/internal/repository/order"
	service "github.com/bazaarlabs/bazaar/internal/service/order"
	"github.com/bazaarlabs/bazaar/internal/transport/http/middleware"
	"github.com/bazaarlabs/bazaar/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/bazaarlabs/bazaar/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Tracking is public; every
// other route expects a bearer token and lets the policy layer decide access.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("/track", h.track)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/count", h.count)
	g.GET("/stats", h.stats)
	g.POST("/bulk-status", h.bulkStatus)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.PATCH("/:id/status", h.updateStatus)
	g.POST("/:id/cancel", h.cancel)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	in := service.CreateInput{
		Items:           payload.Items,
		Subtotal:        payload.Subtotal,
		CouponDiscount:  payload.CouponDiscount,
		SaleDiscount:    payload.SaleDiscount,
		ShippingCharges: payload.ShippingCharges,
		PlatformFee:     payload.PlatformFee,
		Tax:             payload.Tax,
		Total:           payload.Total,
		Currency:        payload.Currency,
		ExchangeRate:    payload.ExchangeRate,
		ShippingAddress: payload.ShippingAddress,
		BillingAddress:  payload.BillingAddress,
		PaymentMethod:   entity.PaymentMethod(payload.PaymentMethod),
		RazorpayOrderID: payload.RazorpayOrderID,
		PaypalOrderID:   payload.PaypalOrderID,
	}

	order, err := h.svc.Create(ctx, middleware.Actor(c), in)
	if err != nil {
		return b.WithError(err).Build()
	}

	span.SetAttributes(attribute.String("order.number", order.Number))

	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, middleware.Actor(c), id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	var payload dto.UpdateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	id := c.Param("id")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	patch, err := toPatch(payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	order, err := h.svc.Update(ctx, middleware.Actor(c), id, patch, payload.ExpectedVersion)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) updateStatus(c echo.Context) error {
	b := response.New(c)

	var payload dto.StatusUpdateRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	id := c.Param("id")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.status", payload.Status),
	))
	defer span.End()

	var extra *repo.Patch
	if payload.TrackingNumber != nil || payload.CourierName != nil || payload.ShipmentID != nil || payload.SellerNotes != nil {
		extra = &repo.Patch{
			TrackingNumber: payload.TrackingNumber,
			CourierName:    payload.CourierName,
			ShipmentID:     payload.ShipmentID,
			SellerNotes:    payload.SellerNotes,
		}
	}

	order, err := h.svc.UpdateStatus(ctx, middleware.Actor(c), id, entity.Status(payload.Status), extra)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	var payload dto.CancelOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	id := c.Param("id")
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Cancel(ctx, middleware.Actor(c), id, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) track(c echo.Context) error {
	b := response.New(c)

	number := c.QueryParam("orderNumber")
	email := c.QueryParam("email")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.track", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	order, err := h.svc.Track(ctx, number, email)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter, page, err := parseListQuery(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	actor := middleware.Actor(c)

	var orders []entity.Order
	switch {
	case c.QueryParam("sellerId") != "" || (actor.IsSeller() && c.QueryParam("userId") == ""):
		sellerID := c.QueryParam("sellerId")
		if sellerID == "" {
			sellerID = actor.SellerID
		}
		orders, err = h.svc.ListSellerOrders(ctx, actor, sellerID, filter, page)
	case c.QueryParam("userId") != "":
		orders, err = h.svc.ListUserOrders(ctx, actor, c.QueryParam("userId"), filter, page)
	case actor.IsAdmin():
		orders, err = h.svc.ListAllOrders(ctx, actor, filter, page)
	default:
		orders, err = h.svc.ListUserOrders(ctx, actor, actor.UID, filter, page)
	}
	if err != nil {
		return b.WithError(err).Build()
	}

	page = page.Normalize()
	resp := dto.OrderListResponse{Orders: make([]dto.OrderResponse, 0, len(orders)), Limit: page.Limit, Offset: page.Offset}
	for i := range orders {
		resp.Orders = append(resp.Orders, toDTO(&orders[i]))
	}

	return b.WithData(resp).Build()
}

func (h *Handler) count(c echo.Context) error {
	b := response.New(c)

	filter, _, err := parseListQuery(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	filter.UserID = c.QueryParam("userId")
	filter.SellerID = c.QueryParam("sellerId")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.count")
	defer span.End()

	count, err := h.svc.CountOrders(ctx, middleware.Actor(c), filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.CountResponse{Count: count}).Build()
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.stats")
	defer span.End()

	stats, err := h.svc.GetStats(ctx, middleware.Actor(c))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(stats).Build()
}

func (h *Handler) bulkStatus(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if len(payload.OrderIDs) == 0 {
		return b.WithError(errorbank.BadRequest("orderIds must not be empty")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkStatus", trace.WithAttributes(
		attribute.Int("order.count", len(payload.OrderIDs)),
	))
	defer span.End()

	result, err := h.svc.BulkUpdateStatus(ctx, middleware.Actor(c), payload.OrderIDs, entity.Status(payload.Status))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(result).Build()
}

func parseListQuery(c echo.Context) (repo.Filter, repo.Page, error) {
	var filter repo.Filter
	var page repo.Page

	filter.Status = entity.Status(c.QueryParam("status"))
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, page, errorbank.BadRequest("unknown status filter")
	}
	filter.PaymentStatus = entity.PaymentStatus(c.QueryParam("paymentStatus"))
	filter.PaymentMethod = entity.PaymentMethod(c.QueryParam("paymentMethod"))

	if raw := c.QueryParam("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, errorbank.BadRequest("from must be RFC3339", errorbank.WithCause(err))
		}
		filter.CreatedFrom = &ts
	}
	if raw := c.QueryParam("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, page, errorbank.BadRequest("to must be RFC3339", errorbank.WithCause(err))
		}
		filter.CreatedTo = &ts
	}
	if raw := c.QueryParam("minTotal"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, page, errorbank.BadRequest("minTotal must be numeric", errorbank.WithCause(err))
		}
		filter.MinTotal = &v
	}
	if raw := c.QueryParam("maxTotal"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, page, errorbank.BadRequest("maxTotal must be numeric", errorbank.WithCause(err))
		}
		filter.MaxTotal = &v
	}
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, page, errorbank.BadRequest("limit must be an integer", errorbank.WithCause(err))
		}
		page.Limit = v
	}
	if raw := c.QueryParam("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, page, errorbank.BadRequest("offset must be an integer", errorbank.WithCause(err))
		}
		page.Offset = v
	}

	return filter, page, nil
}

func toPatch(payload dto.UpdateOrderRequest) (repo.Patch, error) {
	patch := repo.Patch{
		RazorpayOrderID:   payload.RazorpayOrderID,
		RazorpayPaymentID: payload.RazorpayPaymentID,
		PaypalOrderID:     payload.PaypalOrderID,
		TrackingNumber:    payload.TrackingNumber,
		CourierName:       payload.CourierName,
		ShipmentID:        payload.ShipmentID,
		SellerNotes:       payload.SellerNotes,
		Subtotal:          payload.Subtotal,
		CouponDiscount:    payload.CouponDiscount,
		SaleDiscount:      payload.SaleDiscount,
		ShippingCharges:   payload.ShippingCharges,
		PlatformFee:       payload.PlatformFee,
		Tax:               payload.Tax,
		Total:             payload.Total,
		Currency:          payload.Currency,
		ExchangeRate:      payload.ExchangeRate,
		ShippingAddress:   payload.ShippingAddress,
		BillingAddress:    payload.BillingAddress,
	}

	if payload.PaymentStatus != nil {
		ps := entity.PaymentStatus(*payload.PaymentStatus)
		switch ps {
		case entity.PaymentStatusPending, entity.PaymentStatusPaid, entity.PaymentStatusFailed, entity.PaymentStatusRefunded:
			patch.PaymentStatus = &ps
		default:
			return patch, errorbank.BadRequest("unknown payment status")
		}
	}

	return patch, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:                 order.ID,
		OrderNumber:        order.Number,
		UserID:             order.UserID,
		SellerID:           order.SellerID,
		Items:              order.Items,
		Subtotal:           order.Subtotal,
		CouponDiscount:     order.CouponDiscount,
		SaleDiscount:       order.SaleDiscount,
		ShippingCharges:    order.ShippingCharges,
		PlatformFee:        order.PlatformFee,
		Tax:                order.Tax,
		Total:              order.Total,
		Currency:           order.Currency,
		ExchangeRate:       order.ExchangeRate,
		ShippingAddress:    order.ShippingAddress,
		BillingAddress:     order.BillingAddress,
		PaymentMethod:      string(order.PaymentMethod),
		PaymentStatus:      string(order.PaymentStatus),
		Status:             string(order.Status),
		TrackingNumber:     order.TrackingNumber,
		CourierName:        order.CourierName,
		ShipmentID:         order.ShipmentID,
		SellerNotes:        order.SellerNotes,
		CancellationReason: order.CancellationReason,
		Version:            order.Version,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
		PaidAt:             order.PaidAt,
		ApprovedAt:         order.ApprovedAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		RefundedAt:         order.RefundedAt,
	}
}
