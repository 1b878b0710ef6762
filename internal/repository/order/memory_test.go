package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

func newTestOrder(userID string) *entity.Order {
	return &entity.Order{
		UserID:    userID,
		UserEmail: userID + "@example.com",
		Items: []entity.OrderItem{
			{ProductID: "p1", Name: "Driver Set", Price: 100, Quantity: 2},
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

func ptr[T any](v T) *T { return &v }

func TestMemoryStoreCreateDefaults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, entity.StatusPendingPayment, created.Status)
	assert.Equal(t, entity.PaymentStatusPending, created.PaymentStatus)
	assert.Equal(t, entity.DefaultCurrency, created.Currency)
	assert.EqualValues(t, 1, created.Version)
	assert.Regexp(t, `^ORD-\d{8}-\d{5}$`, created.Number)
}

func TestMemoryStoreNumberSequencePerDay(t *testing.T) {
	store := NewMemoryStore()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })
	ctx := context.Background()

	first, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)
	second, err := store.Create(ctx, newTestOrder("bob"))
	require.NoError(t, err)

	assert.Equal(t, "ORD-20250301-00001", first.Number)
	assert.Equal(t, "ORD-20250301-00002", second.Number)

	// Next calendar day restarts the sequence.
	store.SetClock(func() time.Time { return fixed.Add(24 * time.Hour) })
	third, err := store.Create(ctx, newTestOrder("carol"))
	require.NoError(t, err)
	assert.Equal(t, "ORD-20250302-00001", third.Number)
}

func TestMemoryStoreVersionMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	after, err := store.Update(ctx, created.ID, Patch{SellerNotes: ptr("packed")}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, after.Version)

	after, err = store.UpdateStatus(ctx, created.ID, entity.StatusPendingApproval, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, after.Version)

	after, err = store.Cancel(ctx, created.ID, "changed my mind")
	require.NoError(t, err)
	assert.EqualValues(t, 4, after.Version)
}

func TestMemoryStoreOptimisticLock(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID, Patch{Total: ptr(999.0)}, ptr(int64(7)))
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.EqualValues(t, 7, conflict.Expected)
	assert.EqualValues(t, 1, conflict.Actual)

	// Rejected write must not touch the stored document.
	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.Version)
	assert.Equal(t, 200.0, stored.Total)

	// Matching version succeeds.
	after, err := store.Update(ctx, created.ID, Patch{Total: ptr(250.0)}, ptr(int64(1)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, after.Version)
	assert.Equal(t, 250.0, after.Total)
}

func TestMemoryStoreIllegalTransitionRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusDelivered, nil)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, entity.StatusPendingPayment, te.From)
	assert.Equal(t, entity.StatusDelivered, te.To)

	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingPayment, stored.Status)
	assert.EqualValues(t, 1, stored.Version)
}

func TestMemoryStoreShippedAtWrittenOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return first })
	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusPendingApproval, nil)
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, created.ID, entity.StatusProcessing, nil)
	require.NoError(t, err)
	shipped, err := store.UpdateStatus(ctx, created.ID, entity.StatusShipped, nil)
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedAt)
	assert.Equal(t, first, *shipped.ShippedAt)

	// A later pass through shipped territory leaves the milestone alone.
	store.SetClock(func() time.Time { return first.Add(2 * time.Hour) })
	inTransit, err := store.UpdateStatus(ctx, created.ID, entity.StatusInTransit, nil)
	require.NoError(t, err)
	assert.Equal(t, first, *inTransit.ShippedAt)
}

func TestMemoryStoreCancelAfterShipmentRejected(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)
	for _, st := range []entity.Status{entity.StatusPendingApproval, entity.StatusProcessing, entity.StatusShipped} {
		_, err = store.UpdateStatus(ctx, created.ID, st, nil)
		require.NoError(t, err)
	}

	_, err = store.Cancel(ctx, created.ID, "too late now")
	var cs *CancelStateError
	require.ErrorAs(t, err, &cs)
	assert.Equal(t, entity.StatusShipped, cs.Status)
}

func TestMemoryStoreCancelRecordsReason(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	cancelled, err := store.Cancel(ctx, created.ID, "changed my mind entirely")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind entirely", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.EqualValues(t, 2, cancelled.Version)
}

func TestMemoryStoreTrackByNumber(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	found, err := store.TrackByNumber(ctx, created.Number, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.TrackByNumber(ctx, created.Number, "mallory@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.TrackByNumber(ctx, "ORD-19700101-00001", "alice@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := newTestOrder("alice")
	a.SellerID = "s1"
	a.Total = 500
	_, err := store.Create(ctx, a)
	require.NoError(t, err)

	b := newTestOrder("bob")
	b.Total = 50
	_, err = store.Create(ctx, b)
	require.NoError(t, err)

	bySeller, err := store.List(ctx, Filter{SellerID: "s1"}, Page{})
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Equal(t, "alice", bySeller[0].UserID)

	expensive, err := store.List(ctx, Filter{MinTotal: ptr(100.0)}, Page{})
	require.NoError(t, err)
	require.Len(t, expensive, 1)
	assert.Equal(t, 500.0, expensive[0].Total)

	count, err := store.Count(ctx, Filter{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreBulkUpdateAbortsOnMissingID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, newTestOrder("alice"))
	require.NoError(t, err)

	err = store.BulkUpdate(ctx, []BulkPatch{
		{ID: created.ID, Patch: Patch{SellerNotes: ptr("ok")}},
		{ID: "missing", Patch: Patch{SellerNotes: ptr("nope")}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// Earlier entries in the batch remain applied; the batch is not atomic.
	stored, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", stored.SellerNotes)
}

func TestPatchFields(t *testing.T) {
	p := Patch{TrackingNumber: ptr("TRK1"), Total: ptr(9999.0)}
	assert.ElementsMatch(t, []string{"trackingNumber", "total"}, p.Fields())
	assert.Empty(t, Patch{}.Fields())
}

func TestFormatNumber(t *testing.T) {
	at := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20251231-00007", FormatNumber(at, 7))
}
