package orders

import (
	"testing"

	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

func allStatuses() []enums.FoodOrderStatus {
	return []enums.FoodOrderStatus{
		enums.FoodOrderStatusCreated,
		enums.FoodOrderStatusAccepted,
		enums.FoodOrderStatusPreparing,
		enums.FoodOrderStatusReadyForPickup,
		enums.FoodOrderStatusOutForDelivery,
		enums.FoodOrderStatusDelivered,
		enums.FoodOrderStatusCancelled,
		enums.FoodOrderStatusRTO,
	}
}

func TestAllowedTransitions(t *testing.T) {
	cases := []struct {
		from enums.FoodOrderStatus
		to   enums.FoodOrderStatus
	}{
		{enums.FoodOrderStatusCreated, enums.FoodOrderStatusAccepted},
		{enums.FoodOrderStatusCreated, enums.FoodOrderStatusCancelled},
		{enums.FoodOrderStatusAccepted, enums.FoodOrderStatusPreparing},
		{enums.FoodOrderStatusAccepted, enums.FoodOrderStatusCancelled},
		{enums.FoodOrderStatusPreparing, enums.FoodOrderStatusReadyForPickup},
		{enums.FoodOrderStatusPreparing, enums.FoodOrderStatusCancelled},
		{enums.FoodOrderStatusPreparing, enums.FoodOrderStatusRTO},
		{enums.FoodOrderStatusReadyForPickup, enums.FoodOrderStatusOutForDelivery},
		{enums.FoodOrderStatusReadyForPickup, enums.FoodOrderStatusCancelled},
		{enums.FoodOrderStatusReadyForPickup, enums.FoodOrderStatusRTO},
		{enums.FoodOrderStatusOutForDelivery, enums.FoodOrderStatusDelivered},
		{enums.FoodOrderStatusOutForDelivery, enums.FoodOrderStatusRTO},
	}

	allowed := make(map[[2]enums.FoodOrderStatus]bool, len(cases))
	for _, c := range cases {
		allowed[[2]enums.FoodOrderStatus{c.from, c.to}] = true
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}

	// Every pair outside the table must be rejected.
	for _, from := range allStatuses() {
		for _, to := range allStatuses() {
			if allowed[[2]enums.FoodOrderStatus{from, to}] {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	for _, from := range []enums.FoodOrderStatus{
		enums.FoodOrderStatusDelivered,
		enums.FoodOrderStatusCancelled,
		enums.FoodOrderStatusRTO,
	} {
		for _, to := range allStatuses() {
			if CanTransition(from, to) {
				t.Errorf("terminal status %s must not transition to %s", from, to)
			}
		}
	}
}

func TestValidateTransitionErrorNamesBothStates(t *testing.T) {
	err := ValidateTransition(enums.FoodOrderStatusPreparing, enums.FoodOrderStatusDelivered)
	if err == nil {
		t.Fatal("expected error for preparing -> delivered")
	}

	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %T", err)
	}
	if appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict code, got %s", appErr.Code())
	}
	want := "invalid transition from preparing to delivered"
	if appErr.Message() != want {
		t.Fatalf("expected message %q, got %q", want, appErr.Message())
	}
}
