package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{
		StatusPendingPayment, StatusPendingApproval, StatusProcessing,
		StatusShipped, StatusInTransit, StatusOutForDelivery,
		StatusDelivered, StatusCancelled, StatusRefunded,
	}

	allowed := map[[2]Status]bool{
		{StatusPendingPayment, StatusPendingApproval}: true,
		{StatusPendingPayment, StatusCancelled}:       true,
		{StatusPendingApproval, StatusProcessing}:     true,
		{StatusPendingApproval, StatusCancelled}:      true,
		{StatusProcessing, StatusShipped}:             true,
		{StatusProcessing, StatusCancelled}:           true,
		{StatusShipped, StatusInTransit}:              true,
		{StatusShipped, StatusDelivered}:              true,
		{StatusShipped, StatusCancelled}:              true,
		{StatusInTransit, StatusOutForDelivery}:       true,
		{StatusInTransit, StatusDelivered}:            true,
		{StatusInTransit, StatusCancelled}:            true,
		{StatusOutForDelivery, StatusDelivered}:       true,
		{StatusDelivered, StatusRefunded}:             true,
		{StatusCancelled, StatusRefunded}:             true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatusRefundedIsTerminal(t *testing.T) {
	for next := range transitions {
		assert.False(t, StatusRefunded.CanTransitionTo(next))
	}
}

func TestStatusCancellable(t *testing.T) {
	assert.True(t, StatusPendingPayment.Cancellable())
	assert.True(t, StatusPendingApproval.Cancellable())
	assert.True(t, StatusProcessing.Cancellable())
	assert.False(t, StatusShipped.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
	assert.False(t, StatusRefunded.Cancellable())
}

func TestApplyStatusStampsMilestoneOnce(t *testing.T) {
	order := &Order{Status: StatusProcessing}

	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	order.ApplyStatus(StatusShipped, first)
	require.NotNil(t, order.ShippedAt)
	assert.Equal(t, first, *order.ShippedAt)

	later := first.Add(time.Hour)
	order.ApplyStatus(StatusShipped, later)
	assert.Equal(t, first, *order.ShippedAt, "milestone must not be overwritten")
	assert.Equal(t, later, order.UpdatedAt)
}

func TestApplyStatusStampsPerStatus(t *testing.T) {
	now := time.Now().UTC()
	order := &Order{Status: StatusPendingPayment}

	order.ApplyStatus(StatusPendingApproval, now)
	require.NotNil(t, order.PaidAt)

	order.ApplyStatus(StatusProcessing, now)
	require.NotNil(t, order.ApprovedAt)

	order.ApplyStatus(StatusCancelled, now)
	require.NotNil(t, order.CancelledAt)

	order.ApplyStatus(StatusRefunded, now)
	require.NotNil(t, order.RefundedAt)
	assert.Nil(t, order.ShippedAt)
	assert.Nil(t, order.DeliveredAt)
}

func TestPaymentMethodValid(t *testing.T) {
	assert.True(t, PaymentMethodRazorpay.Valid())
	assert.True(t, PaymentMethodPaypal.Valid())
	assert.True(t, PaymentMethodCOD.Valid())
	assert.False(t, PaymentMethod("stripe").Valid())
}

func TestSellerInvolved(t *testing.T) {
	order := &Order{
		SellerID: "s1",
		Items: []OrderItem{
			{ProductID: "p1", SellerID: "s2"},
			{ProductID: "p2"},
		},
	}

	assert.True(t, order.SellerInvolved("s1"))
	assert.True(t, order.SellerInvolved("s2"))
	assert.False(t, order.SellerInvolved("s3"))
	assert.False(t, order.SellerInvolved(""))
}
