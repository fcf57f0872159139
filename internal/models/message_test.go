package models

import "testing"

func TestIsValidDeliveryTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{DeliverySending, DeliverySent, true},
		{DeliverySending, DeliveryDelivered, true},
		{DeliverySending, DeliveryFailed, true},
		{DeliverySent, DeliveryDelivered, true},
		{DeliverySent, DeliveryRead, true},
		{DeliveryDelivered, DeliveryRead, true},

		{DeliverySending, DeliveryRead, false},
		{DeliveryDelivered, DeliverySent, false},
		{DeliverySent, DeliverySending, false},
		{DeliveryRead, DeliveryDelivered, false},
		{DeliveryFailed, DeliverySent, false},
		{"nonexistent", DeliverySent, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidDeliveryTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidDeliveryTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestNewMessageIDDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewMessageID()
		if id == "" {
			t.Fatal("empty message id")
		}
		if seen[id] {
			t.Fatalf("duplicate message id %q", id)
		}
		seen[id] = true
	}
}

func TestTerminalDeliveryStatuses(t *testing.T) {
	for _, status := range []string{DeliveryRead, DeliveryFailed} {
		if len(ValidDeliveryTransitions[status]) != 0 {
			t.Errorf("terminal status %q should have no transitions", status)
		}
	}
}

func TestIsValidMutationTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{MutationPending, MutationConfirmed, true},
		{MutationPending, MutationFailed, true},
		{MutationConfirmed, MutationFailed, false},
		{MutationFailed, MutationPending, false},
	}
	for _, tt := range tests {
		if got := IsValidMutationTransition(tt.from, tt.to); got != tt.expected {
			t.Errorf("IsValidMutationTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}
