package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/internal/wallet"
	dbpkg "github.com/dishpatch/merchant-backend/pkg/db"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
	"github.com/dishpatch/merchant-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// EarningsCreditor credits the merchant wallet once an order is delivered.
type EarningsCreditor interface {
	Credit(ctx context.Context, input wallet.MovementInput) (*models.WalletEntry, error)
}

// DeliveryCodeIssuer mints the confirmation code handed to the customer
// when an order leaves for delivery.
type DeliveryCodeIssuer interface {
	Issue(ctx context.Context, orderID uuid.UUID) (string, error)
}

// Service defines merchant order operations.
type Service interface {
	Ingest(ctx context.Context, input IngestOrderInput) (*models.FoodOrder, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.FoodOrder, error)
	Get(ctx context.Context, storeID, orderID uuid.UUID) (*models.FoodOrder, error)
	List(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
}

// IngestOrderInput carries a new order arriving from the upstream feed.
type IngestOrderInput struct {
	StoreID         uuid.UUID
	ExternalRef     string
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	Instructions    *string
	ItemTotal       decimal.Decimal
	DeliveryFee     decimal.Decimal
	TaxAmount       decimal.Decimal
	GrandTotal      decimal.Decimal
	MerchantEarning decimal.Decimal
	PaymentMode     string
	PlacedAt        time.Time
	Items           []IngestOrderItem
}

// IngestOrderItem is one line on an incoming order.
type IngestOrderItem struct {
	MenuItemID *uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// StatusUpdateInput captures a merchant-requested lifecycle move.
type StatusUpdateInput struct {
	OrderID      uuid.UUID
	StoreID      uuid.UUID
	RawStatus    string
	CancelReason *string
	ActorUserID  uuid.UUID
	ActorRole    string
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	earnings EarningsCreditor
	otp      DeliveryCodeIssuer
	logg     *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, earnings EarningsCreditor, otp DeliveryCodeIssuer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if earnings == nil {
		return nil, fmt.Errorf("earnings creditor required")
	}
	if otp == nil {
		return nil, fmt.Errorf("delivery code issuer required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, earnings: earnings, otp: otp, logg: logg}, nil
}

func (s *service) Ingest(ctx context.Context, input IngestOrderInput) (*models.FoodOrder, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.ExternalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external ref required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order items required")
	}

	placedAt := input.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now().UTC()
	}

	var order *models.FoodOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// The upstream feed retries; the same ref always resolves to one order.
		if existing, findErr := repo.FindByExternalRef(ctx, input.ExternalRef); findErr == nil {
			order = existing
			return nil
		} else if findErr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "check order external ref")
		}

		row := &models.FoodOrder{
			StoreID:         input.StoreID,
			ExternalRef:     input.ExternalRef,
			Status:          enums.FoodOrderStatusCreated,
			CustomerName:    input.CustomerName,
			CustomerPhone:   input.CustomerPhone,
			DeliveryAddress: input.DeliveryAddress,
			Instructions:    input.Instructions,
			ItemTotal:       input.ItemTotal,
			DeliveryFee:     input.DeliveryFee,
			TaxAmount:       input.TaxAmount,
			GrandTotal:      input.GrandTotal,
			MerchantEarning: input.MerchantEarning,
			CurrencyCode:    enums.CurrencyINR,
			PaymentMode:     input.PaymentMode,
			PlacedAt:        placedAt,
		}
		if err := repo.Create(ctx, row); err != nil {
			if dbpkg.IsUniqueViolation(err, "external_ref") {
				existing, findErr := repo.FindByExternalRef(ctx, input.ExternalRef)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load order after conflict")
				}
				order = existing
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			items = append(items, models.OrderItem{
				OrderID:    row.ID,
				MenuItemID: item.MenuItemID,
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				LineTotal:  lineTotal,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		row.Items = items
		order = row

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateFoodOrder,
			AggregateID:   row.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:     row.ID,
				StoreID:     row.StoreID,
				ExternalRef: row.ExternalRef,
				GrandTotal:  row.GrandTotal,
				PlacedAt:    row.PlacedAt,
			},
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   row.ID,
			Version:       1,
			Data: payloads.NotificationRequestedEvent{
				StoreID: row.StoreID,
				Type:    enums.NotificationTypeOrderAlert,
				Title:   "New order received",
				Message: fmt.Sprintf("Order %s for %s is waiting to be accepted.", row.ExternalRef, row.GrandTotal.StringFixed(2)),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.FoodOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}

	target, err := enums.ParseFoodOrderStatus(input.RawStatus)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if target == enums.FoodOrderStatusCreated {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders cannot be moved back to created")
	}

	var (
		order          *models.FoodOrder
		firstDelivered bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if row.StoreID != input.StoreID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if err := ValidateTransition(row.Status, target); err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": target}
		switch target {
		case enums.FoodOrderStatusAccepted:
			updates["accepted_at"] = now
			row.AcceptedAt = &now
		case enums.FoodOrderStatusPreparing:
			updates["preparing_at"] = now
			row.PreparingAt = &now
		case enums.FoodOrderStatusReadyForPickup:
			updates["ready_at"] = now
			row.ReadyAt = &now
		case enums.FoodOrderStatusOutForDelivery:
			updates["out_for_delivery_at"] = now
			row.OutForDeliveryAt = &now
		case enums.FoodOrderStatusDelivered:
			firstDelivered = row.DeliveredAt == nil
			updates["delivered_at"] = now
			row.DeliveredAt = &now
		case enums.FoodOrderStatusCancelled:
			updates["cancelled_at"] = now
			row.CancelledAt = &now
			if input.CancelReason != nil {
				updates["cancel_reason"] = *input.CancelReason
				row.CancelReason = input.CancelReason
			}
		case enums.FoodOrderStatusRTO:
			updates["returned_at"] = now
			row.ReturnedAt = &now
		}

		if err := repo.UpdateStatus(ctx, row.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		// The customer confirms the handover with this code, so the
		// transition must not land without one.
		var deliveryOTP string
		if target == enums.FoodOrderStatusOutForDelivery {
			code, otpErr := s.otp.Issue(ctx, row.ID)
			if otpErr != nil {
				return otpErr
			}
			deliveryOTP = code
		}

		from := row.Status
		row.Status = target
		order = row

		actor := &outbox.ActorRef{UserID: input.ActorUserID, StoreID: &input.StoreID, Role: input.ActorRole}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateFoodOrder,
			AggregateID:   row.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     row.ID,
				StoreID:     row.StoreID,
				FromStatus:  from,
				ToStatus:    target,
				ChangedAt:   now,
				DeliveryOTP: deliveryOTP,
			},
		}); err != nil {
			return err
		}

		switch target {
		case enums.FoodOrderStatusDelivered:
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderDelivered,
				AggregateType: enums.AggregateFoodOrder,
				AggregateID:   row.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderDeliveredEvent{
					OrderID:         row.ID,
					StoreID:         row.StoreID,
					MerchantEarning: row.MerchantEarning,
					DeliveredAt:     now,
				},
			}); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventNotificationRequested,
				AggregateType: enums.AggregateNotification,
				AggregateID:   row.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.NotificationRequestedEvent{
					StoreID: row.StoreID,
					Type:    enums.NotificationTypeOrderAlert,
					Title:   "Order delivered",
					Message: fmt.Sprintf("Order %s was delivered. %s has been credited to your wallet.", row.ExternalRef, row.MerchantEarning.StringFixed(2)),
				},
			})
		case enums.FoodOrderStatusCancelled:
			reason := ""
			if input.CancelReason != nil {
				reason = *input.CancelReason
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCancelled,
				AggregateType: enums.AggregateFoodOrder,
				AggregateID:   row.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderCancelledEvent{
					OrderID:     row.ID,
					StoreID:     row.StoreID,
					Reason:      reason,
					CancelledAt: now,
				},
			})
		case enums.FoodOrderStatusRTO:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderReturned,
				AggregateType: enums.AggregateFoodOrder,
				AggregateID:   row.ID,
				Version:       1,
				Actor:         actor,
				Data: payloads.OrderReturnedEvent{
					OrderID:    row.ID,
					StoreID:    row.StoreID,
					ReturnedAt: now,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The status change stands even if crediting fails; the earning can be
	// replayed later with the same key without double-crediting.
	if firstDelivered && order.MerchantEarning.IsPositive() {
		_, creditErr := s.earnings.Credit(ctx, wallet.MovementInput{
			StoreID:        order.StoreID,
			Amount:         order.MerchantEarning,
			Category:       enums.WalletEntryCategoryOrderEarning,
			IdempotencyKey: wallet.OrderEarningKey(order.ID),
			ReferenceID:    &order.ID,
			Actor:          &outbox.ActorRef{UserID: input.ActorUserID, StoreID: &input.StoreID, Role: input.ActorRole},
		})
		if creditErr != nil && s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(logCtx, "wallet credit failed after delivery", creditErr)
		}
	}

	return order, nil
}

func (s *service) Get(ctx context.Context, storeID, orderID uuid.UUID) (*models.FoodOrder, error) {
	if storeID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id and order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	list, err := s.repo.ListByStore(ctx, storeID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}
