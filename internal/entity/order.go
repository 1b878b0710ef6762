package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPendingPayment  Status = "pending_payment"
	StatusPendingApproval Status = "pending_approval"
	StatusProcessing      Status = "processing"
	StatusShipped         Status = "shipped"
	StatusInTransit       Status = "in_transit"
	StatusOutForDelivery  Status = "out_for_delivery"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusRefunded        Status = "refunded"
)

// transitions is the full set of legal status edges. Refunded is terminal.
var transitions = map[Status][]Status{
	StatusPendingPayment:  {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval: {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusInTransit, StatusDelivered, StatusCancelled},
	StatusInTransit:       {StatusOutForDelivery, StatusDelivered, StatusCancelled},
	StatusOutForDelivery:  {StatusDelivered},
	StatusDelivered:       {StatusRefunded},
	StatusCancelled:       {StatusRefunded},
	StatusRefunded:        {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> next exists in the lifecycle graph.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled;
// once shipped only refunds apply.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPendingPayment, StatusPendingApproval, StatusProcessing:
		return true
	}
	return false
}

// PaymentMethod enumerates supported payment channels.
type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodPaypal   PaymentMethod = "paypal"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodRazorpay, PaymentMethodPaypal, PaymentMethodCOD:
		return true
	}
	return false
}

// PaymentStatus tracks the payment leg independently of fulfilment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// DefaultCurrency is assumed when the caller does not price in another currency.
const DefaultCurrency = "INR"

// Address captures a shipping or billing destination.
type Address struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country,omitempty"`
}

// OrderItem is a single purchased line.
type OrderItem struct {
	ProductID string  `json:"productId"`
	SellerID  string  `json:"sellerId,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

// Order is the persisted marketplace order aggregate. Items and addresses are
// stored as JSON documents alongside the scalar columns.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID     string `bun:",pk" json:"id"`
	Number string `bun:"number" json:"orderNumber"`

	UserID    string `bun:"user_id" json:"userId"`
	UserEmail string `bun:"user_email" json:"userEmail,omitempty"`
	SellerID  string `bun:"seller_id,nullzero" json:"sellerId,omitempty"`

	Items []OrderItem `bun:"items,type:jsonb" json:"items"`

	Subtotal        float64 `bun:"subtotal" json:"subtotal"`
	CouponDiscount  float64 `bun:"coupon_discount" json:"couponDiscount"`
	SaleDiscount    float64 `bun:"sale_discount" json:"saleDiscount"`
	ShippingCharges float64 `bun:"shipping_charges" json:"shippingCharges"`
	PlatformFee     float64 `bun:"platform_fee" json:"platformFee"`
	Tax             float64 `bun:"tax" json:"tax"`
	Total           float64 `bun:"total" json:"total"`
	Currency        string  `bun:"currency" json:"currency"`
	ExchangeRate    float64 `bun:"exchange_rate,nullzero" json:"exchangeRate,omitempty"`

	ShippingAddress Address `bun:"shipping_address,type:jsonb" json:"shippingAddress"`
	BillingAddress  Address `bun:"billing_address,type:jsonb" json:"billingAddress"`

	PaymentMethod     PaymentMethod `bun:"payment_method" json:"paymentMethod"`
	PaymentStatus     PaymentStatus `bun:"payment_status" json:"paymentStatus"`
	RazorpayOrderID   string        `bun:"razorpay_order_id,nullzero" json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string        `bun:"razorpay_payment_id,nullzero" json:"razorpayPaymentId,omitempty"`
	PaypalOrderID     string        `bun:"paypal_order_id,nullzero" json:"paypalOrderId,omitempty"`

	Status Status `bun:"status" json:"status"`

	TrackingNumber     string `bun:"tracking_number,nullzero" json:"trackingNumber,omitempty"`
	CourierName        string `bun:"courier_name,nullzero" json:"courierName,omitempty"`
	ShipmentID         string `bun:"shipment_id,nullzero" json:"shipmentId,omitempty"`
	SellerNotes        string `bun:"seller_notes,nullzero" json:"sellerNotes,omitempty"`
	CancellationReason string `bun:"cancellation_reason,nullzero" json:"cancellationReason,omitempty"`

	Version int64 `bun:"version" json:"version"`

	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero" json:"updatedAt"`
	PaidAt      *time.Time `bun:"paid_at" json:"paidAt,omitempty"`
	ApprovedAt  *time.Time `bun:"approved_at" json:"approvedAt,omitempty"`
	ShippedAt   *time.Time `bun:"shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `bun:"delivered_at" json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `bun:"cancelled_at" json:"cancelledAt,omitempty"`
	RefundedAt  *time.Time `bun:"refunded_at" json:"refundedAt,omitempty"`
}

// ApplyStatus moves the order into next and stamps the matching milestone
// timestamp the first time that status is reached. Already-set milestones are
// never overwritten.
func (o *Order) ApplyStatus(next Status, now time.Time) {
	o.Status = next
	o.UpdatedAt = now

	stamp := func(field **time.Time) {
		if *field == nil {
			ts := now
			*field = &ts
		}
	}
	switch next {
	case StatusPendingApproval:
		stamp(&o.PaidAt)
	case StatusProcessing:
		stamp(&o.ApprovedAt)
	case StatusShipped:
		stamp(&o.ShippedAt)
	case StatusDelivered:
		stamp(&o.DeliveredAt)
	case StatusCancelled:
		stamp(&o.CancelledAt)
	case StatusRefunded:
		stamp(&o.RefundedAt)
	}
}

// SellerInvolved reports whether sellerID owns the order or any of its items.
func (o *Order) SellerInvolved(sellerID string) bool {
	if sellerID == "" {
		return false
	}
	if o.SellerID == sellerID {
		return true
	}
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
