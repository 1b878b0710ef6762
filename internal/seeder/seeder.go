package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bazaarlabs/bazaar/internal/database"
	"github.com/bazaarlabs/bazaar/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds example marketplace orders if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	day := now.Format("20060102")

	address := entity.Address{
		FullName:     "Asha Nair",
		Phone:        "9876543210",
		AddressLine1: "14 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		Pincode:      "560001",
		Country:      "India",
	}

	samples := []entity.Order{
		{
			ID:     uuid.NewString(),
			Number: "ORD-" + day + "-00001",
			UserID: "seed-user-1", UserEmail: "asha@example.com",
			SellerID: "seed-seller-1",
			Items: []entity.OrderItem{
				{ProductID: "seed-prod-1", SellerID: "seed-seller-1", Name: "Ceramic Mug", Price: 499, Quantity: 2},
			},
			Subtotal: 998, ShippingCharges: 49, Total: 1047, Currency: entity.DefaultCurrency,
			ShippingAddress: address, BillingAddress: address,
			PaymentMethod: entity.PaymentMethodRazorpay, PaymentStatus: entity.PaymentStatusPending,
			Status: entity.StatusPendingPayment, Version: 1,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID:     uuid.NewString(),
			Number: "ORD-" + day + "-00002",
			UserID: "seed-user-2", UserEmail: "ravi@example.com",
			SellerID: "seed-seller-1",
			Items: []entity.OrderItem{
				{ProductID: "seed-prod-2", SellerID: "seed-seller-1", Name: "Linen Cushion", Price: 1299, Quantity: 1},
			},
			Subtotal: 1299, Tax: 234, Total: 1533, Currency: entity.DefaultCurrency,
			ShippingAddress: address, BillingAddress: address,
			PaymentMethod: entity.PaymentMethodCOD, PaymentStatus: entity.PaymentStatusPending,
			Status: entity.StatusProcessing, Version: 2,
			CreatedAt: now, UpdatedAt: now,
		},
	}

	for _, sample := range samples {
		order := sample
		_, err := s.db.NewInsert().Model(&order).
			On("CONFLICT (number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
