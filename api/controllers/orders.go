package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dishpatch/merchant-backend/api/middleware"
	"github.com/dishpatch/merchant-backend/api/responses"
	"github.com/dishpatch/merchant-backend/api/validators"
	"github.com/dishpatch/merchant-backend/internal/orders"
	"github.com/dishpatch/merchant-backend/internal/otp"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/pagination"
	"github.com/dishpatch/merchant-backend/pkg/types"
)

const maxOrderPageSize = 100

// OrderList returns one page of the active store's orders.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, maxOrderPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters orders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseFoodOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown order status"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
			from, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid from timestamp"))
				return
			}
			filters.From = &from
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
			to, parseErr := time.Parse(time.RFC3339, raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid to timestamp"))
				return
			}
			filters.To = &to
		}

		page, err := svc.List(r.Context(), sid, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// OrderDetail returns one order scoped to the active store.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), sid, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type orderStatusRequest struct {
	Status       string  `json:"status" validate:"required"`
	CancelReason *string `json:"cancel_reason,omitempty"`
}

// OrderUpdateStatus moves an order along its lifecycle.
func OrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		uid, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orders.StatusUpdateInput{
			OrderID:      orderID,
			StoreID:      sid,
			RawStatus:    payload.Status,
			CancelReason: payload.CancelReason,
			ActorUserID:  uid,
			ActorRole:    middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type validateOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

// OrderValidateOTP checks the delivery OTP before the rider hands over the order.
func OrderValidateOTP(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload validateOTPRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Validate(r.Context(), otp.ValidateInput{
			OrderID: orderID,
			StoreID: sid,
			Code:    payload.Code,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "validated"})
	}
}

type orderIngestItemRequest struct {
	// MenuItemID must be present: a UUID links the line to a menu item,
	// an explicit null marks it as an off-menu line.
	MenuItemID types.NullableUUID `json:"menu_item_id"`
	Name       string             `json:"name" validate:"required"`
	Quantity   int                `json:"quantity" validate:"required,min=1"`
	UnitPrice  string             `json:"unit_price" validate:"required"`
}

type orderIngestRequest struct {
	StoreID         uuid.UUID                `json:"store_id" validate:"required"`
	ExternalRef     string                   `json:"external_ref" validate:"required"`
	CustomerName    string                   `json:"customer_name" validate:"required"`
	CustomerPhone   string                   `json:"customer_phone"`
	DeliveryAddress string                   `json:"delivery_address" validate:"required"`
	Instructions    *string                  `json:"instructions,omitempty"`
	ItemTotal       string                   `json:"item_total" validate:"required"`
	DeliveryFee     string                   `json:"delivery_fee"`
	TaxAmount       string                   `json:"tax_amount"`
	GrandTotal      string                   `json:"grand_total" validate:"required"`
	MerchantEarning string                   `json:"merchant_earning" validate:"required"`
	PaymentMode     string                   `json:"payment_mode" validate:"required"`
	PlacedAt        *time.Time               `json:"placed_at,omitempty"`
	Items           []orderIngestItemRequest `json:"items" validate:"required,min=1,dive"`
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	if amount.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, field+" must not be negative")
	}
	return amount, nil
}

// AdminOrderIngest accepts an order pushed from the upstream platform feed.
func AdminOrderIngest(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload orderIngestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.IngestOrderInput{
			StoreID:         payload.StoreID,
			ExternalRef:     strings.TrimSpace(payload.ExternalRef),
			CustomerName:    payload.CustomerName,
			CustomerPhone:   payload.CustomerPhone,
			DeliveryAddress: payload.DeliveryAddress,
			Instructions:    payload.Instructions,
			PaymentMode:     payload.PaymentMode,
		}
		if payload.PlacedAt != nil {
			input.PlacedAt = *payload.PlacedAt
		}

		amounts := []struct {
			field string
			raw   string
			dest  *decimal.Decimal
		}{
			{"item_total", payload.ItemTotal, &input.ItemTotal},
			{"delivery_fee", payload.DeliveryFee, &input.DeliveryFee},
			{"tax_amount", payload.TaxAmount, &input.TaxAmount},
			{"grand_total", payload.GrandTotal, &input.GrandTotal},
			{"merchant_earning", payload.MerchantEarning, &input.MerchantEarning},
		}
		for _, a := range amounts {
			parsed, err := parseAmount(a.field, a.raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			*a.dest = parsed
		}

		input.Items = make([]orders.IngestOrderItem, 0, len(payload.Items))
		for i, item := range payload.Items {
			if !item.MenuItemID.Valid {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("items[%d].menu_item_id required (send null for off-menu lines)", i)))
				return
			}
			unitPrice, err := parseAmount(fmt.Sprintf("items[%d].unit_price", i), item.UnitPrice)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Items = append(input.Items, orders.IngestOrderItem{
				MenuItemID: item.MenuItemID.Clone().Value,
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  unitPrice,
			})
		}

		order, err := svc.Ingest(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
