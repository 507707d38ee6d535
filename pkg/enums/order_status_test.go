package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusProcessing},
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusRefunded},
		{OrderStatusProcessing, OrderStatusInTransit},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusRefunded},
		{OrderStatusInTransit, OrderStatusDelivered},
		{OrderStatusDelivered, OrderStatusRefunded},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPaid, OrderStatusDelivered},
		{OrderStatusInTransit, OrderStatusCancelled},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPaid},
		{OrderStatusRefunded, OrderStatusPending},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusCancelled.IsTerminal() || !OrderStatusRefunded.IsTerminal() {
		t.Fatal("cancelled and refunded are terminal")
	}
	if OrderStatusPending.IsTerminal() || OrderStatusDelivered.IsTerminal() {
		t.Fatal("pending is not terminal; delivered can still refund")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if status, err := ParseOrderStatus("in_transit"); err != nil || status != OrderStatusInTransit {
		t.Fatalf("expected in_transit, got %v %v", status, err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
