package order

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	o := &Order{ID: 42}

	want := fmt.Sprintf("ORD-%s-00042", time.Now().Format("20060102"))
	assert.Equal(t, want, o.GenerateOrderNumber())
}

func TestCanBeCancelled(t *testing.T) {
	cases := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusPending, true},
		{OrderStatusConfirmed, true},
		{OrderStatusProcessing, false},
		{OrderStatusShipped, false},
		{OrderStatusDelivered, false},
		{OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		o := &Order{Status: tc.status}
		assert.Equal(t, tc.want, o.CanBeCancelled(), "status %s", tc.status)
	}
}

func TestIsCompleted(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusDelivered}).IsCompleted())
	assert.False(t, (&Order{Status: OrderStatusShipped}).IsCompleted())
}

func TestGetFormattedTotal(t *testing.T) {
	o := &Order{TotalAmount: 199999}
	assert.InDelta(t, 1999.99, o.GetFormattedTotal(), 0.001)
}

func TestAddStatusHistory(t *testing.T) {
	o := &Order{ID: 7}

	o.AddStatusHistory(OrderStatusConfirmed, "payment received", 3)

	assert.Len(t, o.StatusHistory, 1)
	assert.Equal(t, uint(7), o.StatusHistory[0].OrderID)
	assert.Equal(t, OrderStatusConfirmed, o.StatusHistory[0].Status)
	assert.Equal(t, "payment received", o.StatusHistory[0].Comment)
	assert.Equal(t, uint(3), o.StatusHistory[0].CreatedBy)
}

func TestStatusTransitionRules(t *testing.T) {
	svc := &Service{}

	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusConfirmed},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusConfirmed, OrderStatusProcessing},
		{OrderStatusConfirmed, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		assert.True(t, svc.isValidStatusTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusShipped},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusCancelled},
	}
	for _, tc := range denied {
		assert.False(t, svc.isValidStatusTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
