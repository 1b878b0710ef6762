package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlabs/bazaar/internal/auth"
	"github.com/bazaarlabs/bazaar/internal/config"
	"github.com/bazaarlabs/bazaar/internal/entity"
	repo "github.com/bazaarlabs/bazaar/internal/repository/order"
	"github.com/bazaarlabs/bazaar/pkg/errorbank"
)

var (
	adminCtx  = auth.Actor{UID: "root", Role: auth.RoleAdmin}
	aliceCtx  = auth.Actor{UID: "alice", Role: auth.RoleUser, Email: "alice@example.com"}
	bobCtx    = auth.Actor{UID: "bob", Role: auth.RoleUser, Email: "bob@example.com"}
	sellerCtx = auth.Actor{UID: "sam", Role: auth.RoleSeller, SellerID: "s1"}
)

func newTestService() (*Service, *repo.MemoryStore) {
	store := repo.NewMemoryStore()
	svc := NewService(Params{
		Store:  store,
		Config: config.Config{},
	})
	return svc, store
}

func validCreateInput() CreateInput {
	return CreateInput{
		Items: []entity.OrderItem{
			{ProductID: "p1", SellerID: "s1", Name: "Driver Set", Price: 100, Quantity: 2},
		},
		Subtotal: 200,
		Total:    200,
		ShippingAddress: entity.Address{
			FullName:     "A B",
			Phone:        "9876543210",
			AddressLine1: "X",
			City:         "Y",
			State:        "Z",
			Pincode:      "110001",
		},
		PaymentMethod: entity.PaymentMethodCOD,
	}
}

func assertKind(t *testing.T, err error, kind errorbank.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, errorbank.From(err).Kind())
}

func ptr[T any](v T) *T { return &v }

func TestCreateThenCancelScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingPayment, created.Status)
	assert.EqualValues(t, 1, created.Version)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, "alice@example.com", created.UserEmail)
	assert.Equal(t, "s1", created.SellerID, "single-seller order gets a top-level seller")

	cancelled, err := svc.Cancel(ctx, aliceCtx, created.ID, "Changed my mind entirely")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.EqualValues(t, 2, cancelled.Version)
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), auth.Anonymous, validCreateInput())
	assertKind(t, err, errorbank.KindUnauthorized)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"no items", func(in *CreateInput) { in.Items = nil }},
		{"item missing product", func(in *CreateInput) { in.Items[0].ProductID = "" }},
		{"item missing name", func(in *CreateInput) { in.Items[0].Name = "" }},
		{"item non-positive price", func(in *CreateInput) { in.Items[0].Price = 0 }},
		{"item non-positive quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }},
		{"zero total", func(in *CreateInput) { in.Total = 0 }},
		{"negative subtotal", func(in *CreateInput) { in.Subtotal = -1 }},
		{"missing phone", func(in *CreateInput) { in.ShippingAddress.Phone = "" }},
		{"short phone", func(in *CreateInput) { in.ShippingAddress.Phone = "98765" }},
		{"bad pincode", func(in *CreateInput) { in.ShippingAddress.Pincode = "012345" }},
		{"missing city", func(in *CreateInput) { in.ShippingAddress.City = "" }},
		{"bad payment method", func(in *CreateInput) { in.PaymentMethod = "stripe" }},
		{"foreign currency without rate", func(in *CreateInput) { in.Currency = "USD" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mutate(&in)
			_, err := svc.Create(ctx, aliceCtx, in)
			assertKind(t, err, errorbank.KindBadRequest)
		})
	}
}

func TestCreateAcceptsFormattedPhoneAndForeignCurrency(t *testing.T) {
	svc, _ := newTestService()
	in := validCreateInput()
	in.ShippingAddress.Phone = "+91 98765-43210"
	in.Currency = "USD"
	in.ExchangeRate = 83.2

	created, err := svc.Create(context.Background(), aliceCtx, in)
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Currency)
}

func TestCreateDefaultsBillingToShipping(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.Create(context.Background(), aliceCtx, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, created.ShippingAddress, created.BillingAddress)
}

func TestCreateMixedSellersHasNoTopLevelSeller(t *testing.T) {
	svc, _ := newTestService()
	in := validCreateInput()
	in.Items = append(in.Items, entity.OrderItem{ProductID: "p2", SellerID: "s2", Name: "Spare Parts", Price: 50, Quantity: 1})
	in.Subtotal, in.Total = 250, 250

	created, err := svc.Create(context.Background(), aliceCtx, in)
	require.NoError(t, err)
	assert.Empty(t, created.SellerID)
	assert.True(t, created.SellerInvolved("s2"))
}

func TestGetViewScoping(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, adminCtx, created.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, aliceCtx, created.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, sellerCtx, created.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, bobCtx, created.ID)
	assertKind(t, err, errorbank.KindForbidden)
	_, err = svc.Get(ctx, auth.Actor{UID: "eve", Role: auth.RoleSeller, SellerID: "s9"}, created.ID)
	assertKind(t, err, errorbank.KindForbidden)
	_, err = svc.Get(ctx, auth.Anonymous, created.ID)
	assertKind(t, err, errorbank.KindUnauthorized)

	_, err = svc.Get(ctx, adminCtx, "missing")
	assertKind(t, err, errorbank.KindNotFound)
}

func TestUpdateSellerFieldRestriction(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, sellerCtx, created.ID, repo.Patch{Total: ptr(9999.0)}, nil)
	assertKind(t, err, errorbank.KindForbidden)
	assert.Contains(t, errorbank.From(err).Message(), "trackingNumber")

	updated, err := svc.Update(ctx, sellerCtx, created.ID, repo.Patch{TrackingNumber: ptr("TRK1")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "TRK1", updated.TrackingNumber)
	assert.EqualValues(t, 2, updated.Version)

	// Admins are not field-restricted.
	updated, err = svc.Update(ctx, adminCtx, created.ID, repo.Patch{Total: ptr(300.0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 300.0, updated.Total)
}

func TestUpdateUserCannotEdit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, aliceCtx, created.ID, repo.Patch{SellerNotes: ptr("hi")}, nil)
	assertKind(t, err, errorbank.KindForbidden)
}

func TestUpdateOptimisticLockConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, adminCtx, created.ID, repo.Patch{Total: ptr(300.0)}, ptr(int64(5)))
	assertKind(t, err, errorbank.KindConflict)
	details := errorbank.From(err).Details()
	assert.EqualValues(t, 5, details["expectedVersion"])
	assert.EqualValues(t, 1, details["actualVersion"])

	// Document untouched after the rejected write.
	stored, err := svc.Get(ctx, adminCtx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
	assert.Equal(t, 200.0, stored.Total)
}

func TestUpdateStatusIllegalTransition(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	for _, st := range []entity.Status{
		entity.StatusPendingApproval, entity.StatusProcessing,
		entity.StatusShipped, entity.StatusDelivered,
	} {
		_, err = store.UpdateStatus(ctx, created.ID, st, nil)
		require.NoError(t, err)
	}

	_, err = svc.UpdateStatus(ctx, adminCtx, created.ID, entity.StatusProcessing, nil)
	assertKind(t, err, errorbank.KindConflict)

	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDelivered, stored.Status)
	assert.EqualValues(t, 5, stored.Version)
}

func TestUpdateStatusSellerTargetRestriction(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusPendingApproval, nil)
	require.NoError(t, err)

	// pending_approval -> cancelled is a legal edge, but not for sellers.
	_, err = svc.UpdateStatus(ctx, sellerCtx, created.ID, entity.StatusCancelled, nil)
	assertKind(t, err, errorbank.KindForbidden)

	updated, err := svc.UpdateStatus(ctx, sellerCtx, created.ID, entity.StatusProcessing, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusProcessing, updated.Status)
}

func TestUpdateStatusMergesShipmentFields(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusPendingApproval, nil)
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusProcessing, nil)
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, sellerCtx, created.ID, entity.StatusShipped, &repo.Patch{
		TrackingNumber: ptr("TRK9"),
		CourierName:    ptr("BlueDart"),
	})
	require.NoError(t, err)
	assert.Equal(t, "TRK9", updated.TrackingNumber)
	assert.Equal(t, "BlueDart", updated.CourierName)
	require.NotNil(t, updated.ShippedAt)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdateStatus(context.Background(), adminCtx, "any", entity.Status("teleported"), nil)
	assertKind(t, err, errorbank.KindBadRequest)
}

func TestCancelRules(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, aliceCtx, created.ID, "too short")
	assertKind(t, err, errorbank.KindBadRequest)

	_, err = svc.Cancel(ctx, bobCtx, created.ID, "not my order but trying anyway")
	assertKind(t, err, errorbank.KindForbidden)

	// Sellers may cancel orders carrying their items.
	other, err := svc.Create(ctx, bobCtx, validCreateInput())
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, sellerCtx, other.ID, "item is out of stock, sorry")
	require.NoError(t, err)

	// Past shipment, not even an admin can cancel.
	for _, st := range []entity.Status{entity.StatusPendingApproval, entity.StatusProcessing, entity.StatusShipped} {
		_, err = store.UpdateStatus(ctx, created.ID, st, nil)
		require.NoError(t, err)
	}
	_, err = svc.Cancel(ctx, adminCtx, created.ID, "attempting a very late cancel")
	assertKind(t, err, errorbank.KindConflict)
}

func TestTrack(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	created, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	found, err := svc.Track(ctx, created.Number, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.Track(ctx, created.Number, "bob@example.com")
	assertKind(t, err, errorbank.KindNotFound)

	_, err = svc.Track(ctx, "", "alice@example.com")
	assertKind(t, err, errorbank.KindBadRequest)
}

func TestListUserOrdersScoping(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	orders, err := svc.ListUserOrders(ctx, aliceCtx, "alice", repo.Filter{}, repo.Page{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = svc.ListUserOrders(ctx, bobCtx, "alice", repo.Filter{}, repo.Page{})
	assertKind(t, err, errorbank.KindForbidden)

	_, err = svc.ListUserOrders(ctx, auth.Anonymous, "alice", repo.Filter{}, repo.Page{})
	assertKind(t, err, errorbank.KindUnauthorized)

	orders, err = svc.ListUserOrders(ctx, adminCtx, "alice", repo.Filter{}, repo.Page{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestListSellerOrdersForcesOwnScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)

	// A seller asking for another seller's scope still only sees their own.
	orders, err := svc.ListSellerOrders(ctx, sellerCtx, "s2", repo.Filter{}, repo.Page{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "s1", orders[0].SellerID)

	_, err = svc.ListSellerOrders(ctx, aliceCtx, "s1", repo.Filter{}, repo.Page{})
	assertKind(t, err, errorbank.KindForbidden)
}

func TestListAllOrdersAdminOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.ListAllOrders(ctx, sellerCtx, repo.Filter{}, repo.Page{})
	assertKind(t, err, errorbank.KindForbidden)

	_, err = svc.ListAllOrders(ctx, adminCtx, repo.Filter{}, repo.Page{})
	assert.NoError(t, err)
}

func TestCountOrdersInjectsScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, bobCtx, validCreateInput())
	require.NoError(t, err)

	count, err := svc.CountOrders(ctx, aliceCtx, repo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.CountOrders(ctx, adminCtx, repo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.CountOrders(ctx, sellerCtx, repo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count, "both orders carry seller s1")

	_, err = svc.CountOrders(ctx, auth.Anonymous, repo.Filter{})
	assertKind(t, err, errorbank.KindUnauthorized)
}

func TestBulkUpdateStatusReportsActualCounts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	second, err := svc.Create(ctx, bobCtx, validCreateInput())
	require.NoError(t, err)

	result, err := svc.BulkUpdateStatus(ctx, adminCtx, []string{first.ID, second.ID, "missing"}, entity.StatusPendingApproval)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "missing", result.Failures[0].ID)
	assert.Equal(t, string(errorbank.KindNotFound), result.Failures[0].Kind)

	_, err = svc.BulkUpdateStatus(ctx, sellerCtx, []string{first.ID}, entity.StatusProcessing)
	assertKind(t, err, errorbank.KindForbidden)

	_, err = svc.BulkUpdateStatus(ctx, adminCtx, nil, entity.StatusProcessing)
	assertKind(t, err, errorbank.KindBadRequest)
}

func TestGetStats(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Create(ctx, aliceCtx, validCreateInput())
	require.NoError(t, err)
	in := validCreateInput()
	in.Total = 400
	in.PaymentMethod = entity.PaymentMethodRazorpay
	_, err = svc.Create(ctx, bobCtx, in)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, aliceCtx, first.ID, "changed my mind entirely")
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx, adminCtx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.ByStatus[entity.StatusCancelled])
	assert.Equal(t, 1, stats.ByStatus[entity.StatusPendingPayment])
	assert.Equal(t, 1, stats.ByPaymentMethod[entity.PaymentMethodCOD])
	assert.Equal(t, 1, stats.ByPaymentMethod[entity.PaymentMethodRazorpay])
	assert.Equal(t, 400.0, stats.TotalRevenue, "cancelled orders carry no revenue")
	assert.Equal(t, 400.0, stats.AverageOrderValue)
	assert.Equal(t, 1, stats.CancelledOrRefunded)

	_, err = svc.GetStats(ctx, sellerCtx)
	assertKind(t, err, errorbank.KindForbidden)
}
