package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bazaarlabs/bazaar/internal/auth"
	"github.com/bazaarlabs/bazaar/internal/cache"
	"github.com/bazaarlabs/bazaar/internal/config"
	"github.com/bazaarlabs/bazaar/internal/entity"
	"github.com/bazaarlabs/bazaar/internal/messaging"
	repo "github.com/bazaarlabs/bazaar/internal/repository/order"
	"github.com/bazaarlabs/bazaar/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/bazaarlabs/bazaar/service/order")

// sellerPatchFields is the only set of fields a seller may change through the
// general update path.
var sellerPatchFields = map[string]bool{
	"trackingNumber": true,
	"courierName":    true,
	"shipmentId":     true,
	"sellerNotes":    true,
}

// sellerStatusTargets limits which statuses a seller may set directly;
// cancellation and refunds go through their own paths.
var sellerStatusTargets = map[entity.Status]bool{
	entity.StatusProcessing:     true,
	entity.StatusShipped:        true,
	entity.StatusInTransit:      true,
	entity.StatusOutForDelivery: true,
	entity.StatusDelivered:      true,
}

// minCancelReasonLen guards against empty or throwaway cancellation reasons.
const minCancelReasonLen = 10

// Service is the order policy engine: it authorizes and validates every
// operation against the caller's role, then delegates the mutation to the
// store, which re-checks lifecycle invariants inside its own transaction.
type Service struct {
	store     Store
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     Store
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Create validates the payload, attaches the buyer identity from the actor,
// and persists the order. Any authenticated caller may place an order.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("actor.uid", actor.UID)))
	defer span.End()

	if !actor.Authenticated() {
		return nil, errorbank.Unauthorized("authentication required")
	}
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	o := &entity.Order{
		UserID:          actor.UID,
		UserEmail:       actor.Email,
		SellerID:        sharedSellerID(in.Items),
		Items:           in.Items,
		Subtotal:        in.Subtotal,
		CouponDiscount:  in.CouponDiscount,
		SaleDiscount:    in.SaleDiscount,
		ShippingCharges: in.ShippingCharges,
		PlatformFee:     in.PlatformFee,
		Tax:             in.Tax,
		Total:           in.Total,
		Currency:        in.Currency,
		ExchangeRate:    in.ExchangeRate,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   in.PaymentMethod,
		RazorpayOrderID: in.RazorpayOrderID,
		PaypalOrderID:   in.PaypalOrderID,
	}

	created, err := s.store.Create(ctx, o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, storeError(err)
	}

	s.storeInCache(ctx, created)
	s.publish(ctx, EventOrderCreated, created.ID, OrderCreatedEvent{
		ID:            created.ID,
		Number:        created.Number,
		UserID:        created.UserID,
		SellerID:      created.SellerID,
		Total:         created.Total,
		Currency:      created.Currency,
		PaymentMethod: created.PaymentMethod,
		CreatedAt:     created.CreatedAt,
	})
	return created, nil
}

// Get returns the order when the actor may view it: admins always, buyers for
// their own orders, sellers for orders carrying their items.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Update applies a general field patch. Sellers are limited to the shipment
// field allow-list; plain users cannot edit at all (they may only cancel).
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, patch repo.Patch, expectedVersion *int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(actor, o); err != nil {
		return nil, err
	}
	if actor.IsSeller() {
		if disallowed := disallowedSellerFields(patch); len(disallowed) > 0 {
			return nil, errorbank.Forbidden(
				"sellers may only update trackingNumber, courierName, shipmentId, sellerNotes",
				errorbank.WithDetail("disallowedFields", disallowed),
			)
		}
	}

	updated, err := s.store.Update(ctx, id, patch, expectedVersion)
	if err != nil {
		return nil, storeError(err)
	}
	s.dropFromCache(ctx, id)
	return updated, nil
}

// UpdateStatus moves the order along the lifecycle graph. The transition is
// checked against the state table before the role restriction, and again by
// the store inside its transaction.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id string, status entity.Status, extra *repo.Patch) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", string(status))))
	defer span.End()

	if !status.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status %q", status))
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canEdit(actor, o); err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, errorbank.Conflict(fmt.Sprintf("invalid status transition from %s to %s", o.Status, status))
	}
	if actor.IsSeller() && !sellerStatusTargets[status] {
		return nil, errorbank.Forbidden(fmt.Sprintf("sellers may not set status %s", status))
	}

	updated, err := s.store.UpdateStatus(ctx, id, status, extra)
	if err != nil {
		return nil, storeError(err)
	}
	s.dropFromCache(ctx, id)
	s.publish(ctx, EventOrderStatusChanged, updated.ID, OrderStatusChangedEvent{
		ID:      updated.ID,
		Number:  updated.Number,
		From:    o.Status,
		To:      updated.Status,
		Version: updated.Version,
	})
	return updated, nil
}

// Cancel records a buyer, seller, or admin cancellation. Buyers may cancel
// only their own orders, and only before shipment.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id, reason string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if !actor.Authenticated() {
		return nil, errorbank.Unauthorized("authentication required")
	}
	if len(strings.TrimSpace(reason)) < minCancelReasonLen {
		return nil, errorbank.BadRequest(fmt.Sprintf("cancellation reason must be at least %d characters", minCancelReasonLen))
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
	case actor.IsSeller():
		if !o.SellerInvolved(actor.SellerID) {
			return nil, errorbank.Forbidden("order does not belong to this seller")
		}
	default:
		if o.UserID != actor.UID {
			return nil, errorbank.Forbidden("order does not belong to this user")
		}
	}

	cancelled, err := s.store.Cancel(ctx, id, reason)
	if err != nil {
		return nil, storeError(err)
	}
	s.dropFromCache(ctx, id)
	s.publish(ctx, EventOrderCancelled, cancelled.ID, OrderCancelledEvent{
		ID:      cancelled.ID,
		Number:  cancelled.Number,
		Reason:  reason,
		Version: cancelled.Version,
	})
	return cancelled, nil
}

// Track is the public tracking lookup: order number plus buyer email. A miss
// never reveals which of the two was wrong.
func (s *Service) Track(ctx context.Context, number, email string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Track")
	defer span.End()

	if number == "" || email == "" {
		return nil, errorbank.BadRequest("order number and email are required")
	}
	o, err := s.store.TrackByNumber(ctx, number, email)
	if err != nil {
		return nil, storeError(err)
	}
	return o, nil
}

// ListUserOrders returns a buyer's orders. Non-admins may only request their
// own.
func (s *Service) ListUserOrders(ctx context.Context, actor auth.Actor, userID string, filter repo.Filter, page repo.Page) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListUserOrders", trace.WithAttributes(attribute.String("order.user_id", userID)))
	defer span.End()

	if !actor.Authenticated() {
		return nil, errorbank.Unauthorized("authentication required")
	}
	if !actor.IsAdmin() && actor.UID != userID {
		return nil, errorbank.Forbidden("cannot list another user's orders")
	}
	filter.UserID = userID
	orders, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// ListSellerOrders returns orders scoped to a seller. Sellers are forced onto
// their own seller id; buyers are never allowed.
func (s *Service) ListSellerOrders(ctx context.Context, actor auth.Actor, sellerID string, filter repo.Filter, page repo.Page) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListSellerOrders", trace.WithAttributes(attribute.String("order.seller_id", sellerID)))
	defer span.End()

	switch {
	case actor.IsAdmin():
	case actor.IsSeller():
		sellerID = actor.SellerID
	default:
		return nil, errorbank.Forbidden("seller or admin role required")
	}
	if sellerID == "" {
		return nil, errorbank.BadRequest("seller id is required")
	}
	filter.SellerID = sellerID
	orders, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// ListAllOrders is the admin-wide listing.
func (s *Service) ListAllOrders(ctx context.Context, actor auth.Actor, filter repo.Filter, page repo.Page) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListAllOrders")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, errorbank.Forbidden("admin role required")
	}
	orders, err := s.store.List(ctx, filter, page)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// CountOrders counts orders under the caller's scope: buyers see their own,
// sellers their seller scope, admins everything.
func (s *Service) CountOrders(ctx context.Context, actor auth.Actor, filter repo.Filter) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CountOrders")
	defer span.End()

	switch {
	case actor.IsAdmin():
	case actor.IsSeller():
		filter.SellerID = actor.SellerID
	case actor.Authenticated():
		filter.UserID = actor.UID
	default:
		return 0, errorbank.Unauthorized("authentication required")
	}
	count, err := s.store.Count(ctx, filter)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// BulkFailure describes a single failed entry of a bulk status update.
type BulkFailure struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BulkStatusResult reports exactly what a bulk status update achieved.
type BulkStatusResult struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}

// BulkUpdateStatus applies the transition to each id independently. Per-id
// failures are collected, not fatal; there is no cross-order atomicity.
func (s *Service) BulkUpdateStatus(ctx context.Context, actor auth.Actor, ids []string, status entity.Status) (*BulkStatusResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkUpdateStatus",
		trace.WithAttributes(attribute.Int("order.count", len(ids)), attribute.String("order.status", string(status))))
	defer span.End()

	if !actor.IsAdmin() {
		return nil, errorbank.Forbidden("admin role required")
	}
	if !status.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown order status %q", status))
	}
	if len(ids) == 0 {
		return nil, errorbank.BadRequest("at least one order id is required")
	}

	result := &BulkStatusResult{Attempted: len(ids)}
	for _, id := range ids {
		if _, err := s.store.UpdateStatus(ctx, id, status, nil); err != nil {
			appErr := errorbank.From(storeError(err))
			result.Failures = append(result.Failures, BulkFailure{
				ID:      id,
				Kind:    string(appErr.Kind()),
				Message: appErr.Message(),
			})
			if s.logger != nil {
				s.logger.Warn("bulk status update entry failed", zap.String("id", id), zap.Error(err))
			}
			continue
		}
		s.dropFromCache(ctx, id)
		result.Succeeded++
	}
	return result, nil
}

// Stats aggregates counts and revenue across all orders. Admin only.
type Stats struct {
	TotalOrders         int                          `json:"totalOrders"`
	ByStatus            map[entity.Status]int        `json:"byStatus"`
	ByPaymentMethod     map[entity.PaymentMethod]int `json:"byPaymentMethod"`
	TotalRevenue        float64                      `json:"totalRevenue"`
	AverageOrderValue   float64                      `json:"averageOrderValue"`
	CancelledOrRefunded int                          `json:"cancelledOrRefunded"`
}

// GetStats scans all orders page by page and buckets them in memory. This is a
// reporting convenience, not an aggregation engine.
func (s *Service) GetStats(ctx context.Context, actor auth.Actor) (*Stats, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetStats")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, errorbank.Forbidden("admin role required")
	}

	stats := &Stats{
		ByStatus:        make(map[entity.Status]int),
		ByPaymentMethod: make(map[entity.PaymentMethod]int),
	}
	var revenueOrders int
	page := repo.Page{Limit: 100}
	for {
		orders, err := s.store.List(ctx, repo.Filter{}, page)
		if err != nil {
			return nil, storeError(err)
		}
		for _, o := range orders {
			stats.TotalOrders++
			stats.ByStatus[o.Status]++
			stats.ByPaymentMethod[o.PaymentMethod]++
			if o.Status == entity.StatusCancelled || o.Status == entity.StatusRefunded {
				stats.CancelledOrRefunded++
				continue
			}
			stats.TotalRevenue += o.Total
			revenueOrders++
		}
		if len(orders) < page.Limit {
			break
		}
		page.Offset += page.Limit
	}
	if revenueOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue / float64(revenueOrders)
	}
	return stats, nil
}

// load fetches an order through the cache, falling back to the store.
func (s *Service) load(ctx context.Context, id string) (*entity.Order, error) {
	if o, err := s.getFromCache(ctx, id); err == nil {
		return o, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
		}
	}

	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	s.storeInCache(ctx, o)
	return o, nil
}

func canView(actor auth.Actor, o *entity.Order) error {
	if !actor.Authenticated() {
		return errorbank.Unauthorized("authentication required")
	}
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsSeller():
		if o.SellerInvolved(actor.SellerID) {
			return nil
		}
		return errorbank.Forbidden("order does not belong to this seller")
	default:
		if o.UserID == actor.UID {
			return nil
		}
		return errorbank.Forbidden("order does not belong to this user")
	}
}

func canEdit(actor auth.Actor, o *entity.Order) error {
	if !actor.Authenticated() {
		return errorbank.Unauthorized("authentication required")
	}
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsSeller():
		if o.SellerInvolved(actor.SellerID) {
			return nil
		}
		return errorbank.Forbidden("order does not belong to this seller")
	default:
		// Buyers never edit directly; cancellation has its own path.
		return errorbank.Forbidden("users may not edit orders")
	}
}

func disallowedSellerFields(patch repo.Patch) []string {
	var disallowed []string
	for _, field := range patch.Fields() {
		if !sellerPatchFields[field] {
			disallowed = append(disallowed, field)
		}
	}
	return disallowed
}

// storeError translates store failures into kinded application errors:
// NotFound and Conflict pass through typed; anything else is internal.
func storeError(err error) error {
	var vc *repo.VersionConflictError
	var te *repo.TransitionError
	var cs *repo.CancelStateError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return errorbank.NotFound("order not found")
	case errors.As(err, &vc):
		return errorbank.Conflict("order was modified by another writer",
			errorbank.WithDetail("expectedVersion", vc.Expected),
			errorbank.WithDetail("actualVersion", vc.Actual))
	case errors.As(err, &te):
		return errorbank.Conflict(te.Error())
	case errors.As(err, &cs):
		return errorbank.Conflict("cannot cancel after shipped",
			errorbank.WithDetail("status", string(cs.Status)))
	default:
		return errorbank.Internal("order store operation failed", errorbank.WithCause(err))
	}
}

func (s *Service) cacheKey(id string) string {
	return "orders:" + id
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var o entity.Order
	if err := json.Unmarshal(bytes, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) storeInCache(ctx context.Context, o *entity.Order) {
	if s.cache == nil || o == nil {
		return
	}
	bytes, err := json.Marshal(o)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(o.ID), bytes, s.cacheTTL); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", o.ID), zap.Error(err))
		}
	}
}

func (s *Service) dropFromCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache invalidation failed", zap.String("id", id), zap.Error(err))
		}
	}
}
