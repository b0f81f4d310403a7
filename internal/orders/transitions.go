package orders

import (
	"fmt"

	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"

	"github.com/dishpatch/merchant-backend/pkg/enums"
)

// allowedTransitions is the single source of truth for the order lifecycle.
// Terminal states have no entry.
var allowedTransitions = map[enums.FoodOrderStatus][]enums.FoodOrderStatus{
	enums.FoodOrderStatusCreated: {
		enums.FoodOrderStatusAccepted,
		enums.FoodOrderStatusCancelled,
	},
	enums.FoodOrderStatusAccepted: {
		enums.FoodOrderStatusPreparing,
		enums.FoodOrderStatusCancelled,
	},
	enums.FoodOrderStatusPreparing: {
		enums.FoodOrderStatusReadyForPickup,
		enums.FoodOrderStatusCancelled,
		enums.FoodOrderStatusRTO,
	},
	enums.FoodOrderStatusReadyForPickup: {
		enums.FoodOrderStatusOutForDelivery,
		enums.FoodOrderStatusCancelled,
		enums.FoodOrderStatusRTO,
	},
	enums.FoodOrderStatusOutForDelivery: {
		enums.FoodOrderStatusDelivered,
		enums.FoodOrderStatusRTO,
	},
}

// CanTransition reports whether from → to is an allowed lifecycle move.
func CanTransition(from, to enums.FoodOrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a state-conflict error naming both ends when the move is not allowed.
func ValidateTransition(from, to enums.FoodOrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("invalid transition from %s to %s", from, to))
}
