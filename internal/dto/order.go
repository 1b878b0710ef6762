package dto

import (
	"time"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

// CreateOrderRequest is the payload for placing an order.
type CreateOrderRequest struct {
	Items           []entity.OrderItem `json:"items"`
	Subtotal        float64            `json:"subtotal"`
	CouponDiscount  float64            `json:"couponDiscount"`
	SaleDiscount    float64            `json:"saleDiscount"`
	ShippingCharges float64            `json:"shippingCharges"`
	PlatformFee     float64            `json:"platformFee"`
	Tax             float64            `json:"tax"`
	Total           float64            `json:"total"`
	Currency        string             `json:"currency"`
	ExchangeRate    float64            `json:"exchangeRate"`
	ShippingAddress entity.Address     `json:"shippingAddress"`
	BillingAddress  *entity.Address    `json:"billingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	RazorpayOrderID string             `json:"razorpayOrderId"`
	PaypalOrderID   string             `json:"paypalOrderId"`
}

// UpdateOrderRequest is a partial update; absent fields are left untouched.
type UpdateOrderRequest struct {
	PaymentStatus     *string `json:"paymentStatus"`
	RazorpayOrderID   *string `json:"razorpayOrderId"`
	RazorpayPaymentID *string `json:"razorpayPaymentId"`
	PaypalOrderID     *string `json:"paypalOrderId"`

	TrackingNumber *string `json:"trackingNumber"`
	CourierName    *string `json:"courierName"`
	ShipmentID     *string `json:"shipmentId"`
	SellerNotes    *string `json:"sellerNotes"`

	Subtotal        *float64 `json:"subtotal"`
	CouponDiscount  *float64 `json:"couponDiscount"`
	SaleDiscount    *float64 `json:"saleDiscount"`
	ShippingCharges *float64 `json:"shippingCharges"`
	PlatformFee     *float64 `json:"platformFee"`
	Tax             *float64 `json:"tax"`
	Total           *float64 `json:"total"`
	Currency        *string  `json:"currency"`
	ExchangeRate    *float64 `json:"exchangeRate"`

	ShippingAddress *entity.Address `json:"shippingAddress"`
	BillingAddress  *entity.Address `json:"billingAddress"`

	ExpectedVersion *int64 `json:"expectedVersion"`
}

// StatusUpdateRequest moves an order to a new status, optionally carrying
// shipment details written in the same step.
type StatusUpdateRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
	CourierName    *string `json:"courierName"`
	ShipmentID     *string `json:"shipmentId"`
	SellerNotes    *string `json:"sellerNotes"`
}

// CancelOrderRequest cancels an order with a mandatory reason.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// BulkStatusRequest applies one status to many orders.
type BulkStatusRequest struct {
	OrderIDs []string `json:"orderIds"`
	Status   string   `json:"status"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"orderNumber"`
	UserID      string             `json:"userId"`
	SellerID    string             `json:"sellerId,omitempty"`
	Items       []entity.OrderItem `json:"items"`

	Subtotal        float64 `json:"subtotal"`
	CouponDiscount  float64 `json:"couponDiscount"`
	SaleDiscount    float64 `json:"saleDiscount"`
	ShippingCharges float64 `json:"shippingCharges"`
	PlatformFee     float64 `json:"platformFee"`
	Tax             float64 `json:"tax"`
	Total           float64 `json:"total"`
	Currency        string  `json:"currency"`
	ExchangeRate    float64 `json:"exchangeRate,omitempty"`

	ShippingAddress entity.Address `json:"shippingAddress"`
	BillingAddress  entity.Address `json:"billingAddress"`

	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`

	Status             string `json:"status"`
	TrackingNumber     string `json:"trackingNumber,omitempty"`
	CourierName        string `json:"courierName,omitempty"`
	ShipmentID         string `json:"shipmentId,omitempty"`
	SellerNotes        string `json:"sellerNotes,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	Version int64 `json:"version"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `json:"refundedAt,omitempty"`
}

// OrderListResponse wraps a page of orders.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// CountResponse carries a single count.
type CountResponse struct {
	Count int `json:"count"`
}
