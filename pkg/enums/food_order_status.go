package enums

import "fmt"

// FoodOrderStatus maps to the food_order_status enum in Postgres.
type FoodOrderStatus string

const (
	FoodOrderStatusCreated        FoodOrderStatus = "created"
	FoodOrderStatusAccepted       FoodOrderStatus = "accepted"
	FoodOrderStatusPreparing      FoodOrderStatus = "preparing"
	FoodOrderStatusReadyForPickup FoodOrderStatus = "ready_for_pickup"
	FoodOrderStatusOutForDelivery FoodOrderStatus = "out_for_delivery"
	FoodOrderStatusDelivered      FoodOrderStatus = "delivered"
	FoodOrderStatusCancelled      FoodOrderStatus = "cancelled"
	FoodOrderStatusRTO            FoodOrderStatus = "rto"
)

// FoodOrderStatusAliasNew is the legacy label some upstream feeds still
// send for freshly placed orders. It normalizes to created.
const FoodOrderStatusAliasNew = "new"

var validFoodOrderStatuses = []FoodOrderStatus{
	FoodOrderStatusCreated,
	FoodOrderStatusAccepted,
	FoodOrderStatusPreparing,
	FoodOrderStatusReadyForPickup,
	FoodOrderStatusOutForDelivery,
	FoodOrderStatusDelivered,
	FoodOrderStatusCancelled,
	FoodOrderStatusRTO,
}

// String implements fmt.Stringer.
func (s FoodOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known FoodOrderStatus.
func (s FoodOrderStatus) IsValid() bool {
	for _, candidate := range validFoodOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s FoodOrderStatus) IsTerminal() bool {
	switch s {
	case FoodOrderStatusDelivered, FoodOrderStatusCancelled, FoodOrderStatusRTO:
		return true
	}
	return false
}

// ParseFoodOrderStatus converts raw input into a FoodOrderStatus,
// normalizing the legacy "new" alias.
func ParseFoodOrderStatus(value string) (FoodOrderStatus, error) {
	if value == FoodOrderStatusAliasNew {
		return FoodOrderStatusCreated, nil
	}
	for _, candidate := range validFoodOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid food order status %q", value)
}
