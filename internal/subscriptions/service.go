package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dishpatch/merchant-backend/pkg/db/models"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/outbox"
	"github.com/dishpatch/merchant-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderCreator interface {
	CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (map[string]interface{}, error)
}

type storeFlagUpdater interface {
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// PendingCharge pairs a created charge with the Razorpay order the client
// should complete checkout against.
type PendingCharge struct {
	Charge          *models.Charge
	RazorpayOrderID string
}

// PlanChange reports the proration applied to a mid-cycle plan switch.
type PlanChange struct {
	Subscription *models.Subscription
	Proration    Proration
	Charge       *PendingCharge
}

// Service exposes subscription billing operations.
type Service interface {
	Plans(ctx context.Context) ([]models.BillingPlan, error)
	Current(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
	Subscribe(ctx context.Context, storeID uuid.UUID, planID string) (*models.Subscription, *PendingCharge, error)
	ChangePlan(ctx context.Context, storeID uuid.UUID, newPlanID string) (*PlanChange, error)
	CancelAtPeriodEnd(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error)
	Charges(ctx context.Context, storeID uuid.UUID) ([]models.Charge, error)
	HandleChargePaid(ctx context.Context, razorpayOrderID, razorpayPaymentID string) error
	HandleChargeFailed(ctx context.Context, razorpayOrderID, reason string) error
	ExpirePastDue(ctx context.Context, endedBefore time.Time) (int, error)
}

type service struct {
	repo    Repository
	stores  storeFlagUpdater
	gateway orderCreator
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a subscription service.
func NewService(repo Repository, stores storeFlagUpdater, gateway orderCreator, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		stores:  stores,
		gateway: gateway,
		tx:      tx,
		outbox:  outboxSvc,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Plans(ctx context.Context) ([]models.BillingPlan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

func (s *service) Current(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	sub, err := s.repo.FindCurrentByStore(ctx, storeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}

func (s *service) Subscribe(ctx context.Context, storeID uuid.UUID, planID string) (*models.Subscription, *PendingCharge, error) {
	if storeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.repo.FindCurrentByStore(ctx, storeID); err == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "store already has a subscription")
	} else if err != gorm.ErrRecordNotFound {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing subscription")
	}

	now := s.now()
	sub := &models.Subscription{
		StoreID:            storeID,
		PlanID:             plan.ID,
		Status:             enums.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 0, plan.Interval.Days()),
	}

	var pending *PendingCharge
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		pending, err = s.createCharge(ctx, repo, storeID, &sub.ID, enums.ChargeTypeSubscription, plan.PriceAmount, plan.CurrencyCode, fmt.Sprintf("subscription %s", plan.Name))
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionStarted,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data:          subscriptionPayload(sub),
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return sub, pending, nil
}

// ChangePlan switches the store to a new plan mid-cycle. The unused
// remainder of the old plan is credited against the new plan's price and
// the difference is collected as a plan_change charge.
func (s *service) ChangePlan(ctx context.Context, storeID uuid.UUID, newPlanID string) (*PlanChange, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	sub, err := s.Current(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("plan cannot change while subscription is %s", sub.Status))
	}
	if sub.PlanID == newPlanID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store is already on this plan")
	}

	oldPlan, err := s.loadPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	newPlan, err := s.loadPlan(ctx, newPlanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	remaining := int(sub.CurrentPeriodEnd.Sub(now).Hours() / 24)
	proration := Prorate(oldPlan.PriceAmount, newPlan.PriceAmount, remaining, oldPlan.Interval.Days())

	periodEnd := now.AddDate(0, 0, newPlan.Interval.Days())
	change := &PlanChange{Proration: proration}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateSubscription(ctx, sub.ID, map[string]any{
			"plan_id":              newPlan.ID,
			"current_period_start": now,
			"current_period_end":   periodEnd,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		sub.PlanID = newPlan.ID
		sub.CurrentPeriodStart = now
		sub.CurrentPeriodEnd = periodEnd
		change.Subscription = sub

		if proration.AmountDue.IsPositive() {
			pending, err := s.createCharge(ctx, repo, storeID, &sub.ID, enums.ChargeTypePlanChange, proration.AmountDue, newPlan.CurrencyCode, fmt.Sprintf("plan change to %s", newPlan.Name))
			if err != nil {
				return err
			}
			change.Charge = pending
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionChanged,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data:          subscriptionPayload(sub),
		})
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (s *service) CancelAtPeriodEnd(ctx context.Context, storeID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Current(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateSubscription(ctx, sub.ID, map[string]any{
			"cancel_at_period_end": true,
			"cancelled_at":         now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
		}
		sub.CancelAtPeriodEnd = true
		sub.CancelledAt = &now
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionCancelled,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data:          subscriptionPayload(sub),
		})
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *service) Charges(ctx context.Context, storeID uuid.UUID) ([]models.Charge, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	charges, err := s.repo.ListChargesByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list charges")
	}
	return charges, nil
}

func (s *service) HandleChargePaid(ctx context.Context, razorpayOrderID, razorpayPaymentID string) error {
	charge, err := s.loadCharge(ctx, razorpayOrderID)
	if err != nil {
		return err
	}
	if charge.Status == enums.ChargeStatusPaid {
		return nil
	}

	now := s.now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateCharge(ctx, charge.ID, map[string]any{
			"status":              enums.ChargeStatusPaid,
			"razorpay_payment_id": razorpayPaymentID,
			"paid_at":             now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update charge")
		}
		if charge.SubscriptionID != nil {
			if err := repo.UpdateSubscription(ctx, *charge.SubscriptionID, map[string]any{
				"status": enums.SubscriptionStatusActive,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate subscription")
			}
			if err := s.stores.UpdateFields(ctx, charge.StoreID, map[string]any{"subscription_active": true}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag store subscription")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChargePaid,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   charge.ID,
			Version:       1,
			Data: payloads.ChargeEvent{
				ChargeID:        charge.ID,
				StoreID:         charge.StoreID,
				Amount:          charge.Amount,
				Status:          enums.ChargeStatusPaid,
				RazorpayOrderID: charge.RazorpayOrderID,
			},
		})
	})
}

func (s *service) HandleChargeFailed(ctx context.Context, razorpayOrderID, reason string) error {
	charge, err := s.loadCharge(ctx, razorpayOrderID)
	if err != nil {
		return err
	}
	if charge.Status != enums.ChargeStatusPending {
		return nil
	}

	if s.logg != nil {
		s.logg.Warn(s.logg.WithStoreID(ctx, charge.StoreID.String()), fmt.Sprintf("charge %s failed: %s", charge.ID, reason))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateCharge(ctx, charge.ID, map[string]any{
			"status": enums.ChargeStatusFailed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update charge")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChargeFailed,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   charge.ID,
			Version:       1,
			Data: payloads.ChargeEvent{
				ChargeID:        charge.ID,
				StoreID:         charge.StoreID,
				Amount:          charge.Amount,
				Status:          enums.ChargeStatusFailed,
				RazorpayOrderID: charge.RazorpayOrderID,
			},
		}); err != nil {
			return err
		}

		if charge.SubscriptionID == nil {
			return nil
		}
		sub, err := repo.FindSubscriptionByID(ctx, *charge.SubscriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return nil
		}
		if err := repo.UpdateSubscription(ctx, sub.ID, map[string]any{
			"status": enums.SubscriptionStatusPastDue,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark subscription past due")
		}
		sub.Status = enums.SubscriptionStatusPastDue
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionPastDue,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data:          subscriptionPayload(sub),
		})
	})
}

// ExpirePastDue closes out past_due subscriptions whose period ended
// before the cutoff and clears the store's subscription flag.
func (s *service) ExpirePastDue(ctx context.Context, endedBefore time.Time) (int, error) {
	subs, err := s.repo.ListPastDueEndedBefore(ctx, endedBefore)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list past due subscriptions")
	}

	expired := 0
	for i := range subs {
		sub := subs[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.UpdateSubscription(ctx, sub.ID, map[string]any{
				"status": enums.SubscriptionStatusExpired,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire subscription")
			}
			if err := s.stores.UpdateFields(ctx, sub.StoreID, map[string]any{"subscription_active": false}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unflag store subscription")
			}
			sub.Status = enums.SubscriptionStatusExpired
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubscriptionCancelled,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				Version:       1,
				Data:          subscriptionPayload(&sub),
			})
		})
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, fmt.Sprintf("expire subscription %s", sub.ID), err)
			}
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *service) createCharge(ctx context.Context, repo Repository, storeID uuid.UUID, subscriptionID *uuid.UUID, chargeType enums.ChargeType, amount decimal.Decimal, currency enums.Currency, description string) (*PendingCharge, error) {
	receipt := fmt.Sprintf("chg_%s", uuid.NewString()[:8])
	order, err := s.gateway.CreateOrder(amount.Shift(2).IntPart(), string(currency), receipt, map[string]interface{}{
		"store_id": storeID.String(),
		"type":     string(chargeType),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create razorpay order")
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order id missing")
	}

	charge := &models.Charge{
		StoreID:         storeID,
		Type:            chargeType,
		SubscriptionID:  subscriptionID,
		RazorpayOrderID: orderID,
		Amount:          amount,
		CurrencyCode:    currency,
		Status:          enums.ChargeStatusPending,
		Description:     &description,
	}
	if err := repo.CreateCharge(ctx, charge); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create charge")
	}
	return &PendingCharge{Charge: charge, RazorpayOrderID: orderID}, nil
}

func (s *service) loadPlan(ctx context.Context, planID string) (*models.BillingPlan, error) {
	if planID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	plan, err := s.repo.FindPlan(ctx, planID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is no longer offered")
	}
	return plan, nil
}

func (s *service) loadCharge(ctx context.Context, razorpayOrderID string) (*models.Charge, error) {
	if razorpayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay order id required")
	}
	charge, err := s.repo.FindChargeByRazorpayOrderID(ctx, razorpayOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "charge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load charge")
	}
	return charge, nil
}

func subscriptionPayload(sub *models.Subscription) payloads.SubscriptionEvent {
	return payloads.SubscriptionEvent{
		SubscriptionID: sub.ID,
		StoreID:        sub.StoreID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		PeriodEnd:      sub.CurrentPeriodEnd,
	}
}
