package order

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bazaarlabs/bazaar/internal/entity"
	"github.com/bazaarlabs/bazaar/pkg/errorbank"
)

var (
	phoneStripper = regexp.MustCompile(`[\s\-+]`)
	phonePattern  = regexp.MustCompile(`^\d{10}$`)
	// Indian 6-digit pincode, never starting with 0.
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// CreateInput is the validated payload for placing an order. Buyer identity is
// attached by the policy engine from the actor, never taken from the payload.
type CreateInput struct {
	Items           []entity.OrderItem
	Subtotal        float64
	CouponDiscount  float64
	SaleDiscount    float64
	ShippingCharges float64
	PlatformFee     float64
	Tax             float64
	Total           float64
	Currency        string
	ExchangeRate    float64
	ShippingAddress entity.Address
	BillingAddress  *entity.Address
	PaymentMethod   entity.PaymentMethod
	RazorpayOrderID string
	PaypalOrderID   string
}

func validateCreateInput(in CreateInput) error {
	if err := validateItems(in.Items); err != nil {
		return err
	}
	if err := validateMoney(in); err != nil {
		return err
	}
	if err := validateShippingAddress(in.ShippingAddress); err != nil {
		return err
	}
	if !in.PaymentMethod.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("payment method must be one of %s, %s, %s",
			entity.PaymentMethodRazorpay, entity.PaymentMethodPaypal, entity.PaymentMethodCOD))
	}
	if in.Currency != "" && in.Currency != entity.DefaultCurrency && in.ExchangeRate <= 0 {
		return errorbank.BadRequest("a positive exchange rate is required for non-INR currencies")
	}
	return nil
}

func validateItems(items []entity.OrderItem) error {
	if len(items) == 0 {
		return errorbank.BadRequest("order must contain at least one item")
	}
	for i, item := range items {
		if item.ProductID == "" {
			return errorbank.BadRequest(fmt.Sprintf("item %d: productId is required", i))
		}
		if item.Name == "" {
			return errorbank.BadRequest(fmt.Sprintf("item %d: name is required", i))
		}
		if item.Price <= 0 {
			return errorbank.BadRequest(fmt.Sprintf("item %d: price must be positive", i))
		}
		if item.Quantity <= 0 {
			return errorbank.BadRequest(fmt.Sprintf("item %d: quantity must be positive", i))
		}
	}
	return nil
}

func validateMoney(in CreateInput) error {
	named := map[string]float64{
		"subtotal":        in.Subtotal,
		"couponDiscount":  in.CouponDiscount,
		"saleDiscount":    in.SaleDiscount,
		"shippingCharges": in.ShippingCharges,
		"platformFee":     in.PlatformFee,
		"tax":             in.Tax,
	}
	for name, v := range named {
		if v < 0 {
			return errorbank.BadRequest(name + " must be non-negative")
		}
	}
	if in.Total <= 0 {
		return errorbank.BadRequest("total must be positive")
	}
	return nil
}

func validateShippingAddress(addr entity.Address) error {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", addr.FullName},
		{"phone", addr.Phone},
		{"addressLine1", addr.AddressLine1},
		{"city", addr.City},
		{"state", addr.State},
		{"pincode", addr.Pincode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errorbank.BadRequest("shipping address: " + f.name + " is required")
		}
	}
	if !phonePattern.MatchString(phoneStripper.ReplaceAllString(addr.Phone, "")) {
		return errorbank.BadRequest("shipping address: phone must be a 10-digit number")
	}
	if !pincodePattern.MatchString(addr.Pincode) {
		return errorbank.BadRequest("shipping address: pincode must be a valid 6-digit Indian pincode")
	}
	return nil
}

// sharedSellerID returns the seller id if every item carries the same,
// non-empty seller; otherwise the order has no top-level seller.
func sharedSellerID(items []entity.OrderItem) string {
	if len(items) == 0 {
		return ""
	}
	seller := items[0].SellerID
	if seller == "" {
		return ""
	}
	for _, item := range items[1:] {
		if item.SellerID != seller {
			return ""
		}
	}
	return seller
}
