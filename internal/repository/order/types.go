package order

import (
	"time"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

// Filter narrows listing and counting queries. Zero values mean "no filter".
type Filter struct {
	UserID        string
	SellerID      string
	Status        entity.Status
	PaymentStatus entity.PaymentStatus
	PaymentMethod entity.PaymentMethod
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	MinTotal      *float64
	MaxTotal      *float64
}

// Page bounds a listing query. Results are always ordered by creation time,
// newest first.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit applies when the caller does not bound the page.
const DefaultPageLimit = 20

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Patch is a partial order update. Nil fields are left untouched.
type Patch struct {
	PaymentStatus     *entity.PaymentStatus
	RazorpayOrderID   *string
	RazorpayPaymentID *string
	PaypalOrderID     *string

	TrackingNumber *string
	CourierName    *string
	ShipmentID     *string
	SellerNotes    *string

	Subtotal        *float64
	CouponDiscount  *float64
	SaleDiscount    *float64
	ShippingCharges *float64
	PlatformFee     *float64
	Tax             *float64
	Total           *float64
	Currency        *string
	ExchangeRate    *float64

	ShippingAddress *entity.Address
	BillingAddress  *entity.Address
}

// Apply copies every set field onto the order. Version and timestamps are the
// store's responsibility, not the patch's.
func (p Patch) Apply(o *entity.Order) {
	if p.PaymentStatus != nil {
		o.PaymentStatus = *p.PaymentStatus
	}
	if p.RazorpayOrderID != nil {
		o.RazorpayOrderID = *p.RazorpayOrderID
	}
	if p.RazorpayPaymentID != nil {
		o.RazorpayPaymentID = *p.RazorpayPaymentID
	}
	if p.PaypalOrderID != nil {
		o.PaypalOrderID = *p.PaypalOrderID
	}
	if p.TrackingNumber != nil {
		o.TrackingNumber = *p.TrackingNumber
	}
	if p.CourierName != nil {
		o.CourierName = *p.CourierName
	}
	if p.ShipmentID != nil {
		o.ShipmentID = *p.ShipmentID
	}
	if p.SellerNotes != nil {
		o.SellerNotes = *p.SellerNotes
	}
	if p.Subtotal != nil {
		o.Subtotal = *p.Subtotal
	}
	if p.CouponDiscount != nil {
		o.CouponDiscount = *p.CouponDiscount
	}
	if p.SaleDiscount != nil {
		o.SaleDiscount = *p.SaleDiscount
	}
	if p.ShippingCharges != nil {
		o.ShippingCharges = *p.ShippingCharges
	}
	if p.PlatformFee != nil {
		o.PlatformFee = *p.PlatformFee
	}
	if p.Tax != nil {
		o.Tax = *p.Tax
	}
	if p.Total != nil {
		o.Total = *p.Total
	}
	if p.Currency != nil {
		o.Currency = *p.Currency
	}
	if p.ExchangeRate != nil {
		o.ExchangeRate = *p.ExchangeRate
	}
	if p.ShippingAddress != nil {
		o.ShippingAddress = *p.ShippingAddress
	}
	if p.BillingAddress != nil {
		o.BillingAddress = *p.BillingAddress
	}
}

// Fields lists the names of every set field, matching the wire names used by
// the HTTP payloads. The policy layer uses this for the seller allow-list.
func (p Patch) Fields() []string {
	var fields []string
	add := func(name string, set bool) {
		if set {
			fields = append(fields, name)
		}
	}
	add("paymentStatus", p.PaymentStatus != nil)
	add("razorpayOrderId", p.RazorpayOrderID != nil)
	add("razorpayPaymentId", p.RazorpayPaymentID != nil)
	add("paypalOrderId", p.PaypalOrderID != nil)
	add("trackingNumber", p.TrackingNumber != nil)
	add("courierName", p.CourierName != nil)
	add("shipmentId", p.ShipmentID != nil)
	add("sellerNotes", p.SellerNotes != nil)
	add("subtotal", p.Subtotal != nil)
	add("couponDiscount", p.CouponDiscount != nil)
	add("saleDiscount", p.SaleDiscount != nil)
	add("shippingCharges", p.ShippingCharges != nil)
	add("platformFee", p.PlatformFee != nil)
	add("tax", p.Tax != nil)
	add("total", p.Total != nil)
	add("currency", p.Currency != nil)
	add("exchangeRate", p.ExchangeRate != nil)
	add("shippingAddress", p.ShippingAddress != nil)
	add("billingAddress", p.BillingAddress != nil)
	return fields
}

// BulkPatch pairs an order id with a patch for batch application.
type BulkPatch struct {
	ID    string
	Patch Patch
}
