package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dishpatch/merchant-backend/pkg/logger"
)

type retentionDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

type subscriptionExpirer interface {
	ExpirePastDue(ctx context.Context, endedBefore time.Time) (int, error)
}

// NewOutboxRetentionJob prunes published outbox rows past the retention
// window.
func NewOutboxRetentionJob(pruner outboxPruner, retention time.Duration, logg *logger.Logger) Job {
	return Job{
		Name: "outbox_retention",
		Run: func(ctx context.Context) error {
			removed, err := pruner.DeletePublishedBefore(time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if logg != nil && removed > 0 {
				logg.Info(ctx, fmt.Sprintf("pruned %d published outbox rows", removed))
			}
			return nil
		},
	}
}

// NewVerificationLogRetentionJob prunes old bank verification attempts.
func NewVerificationLogRetentionJob(deleter retentionDeleter, retention time.Duration, logg *logger.Logger) Job {
	return Job{
		Name: "verification_log_retention",
		Run: func(ctx context.Context) error {
			removed, err := deleter.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if logg != nil && removed > 0 {
				logg.Info(ctx, fmt.Sprintf("pruned %d verification log rows", removed))
			}
			return nil
		},
	}
}

// NewNotificationRetentionJob prunes old notification feed rows.
func NewNotificationRetentionJob(deleter retentionDeleter, retention time.Duration, logg *logger.Logger) Job {
	return Job{
		Name: "notification_retention",
		Run: func(ctx context.Context) error {
			removed, err := deleter.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if logg != nil && removed > 0 {
				logg.Info(ctx, fmt.Sprintf("pruned %d notification rows", removed))
			}
			return nil
		},
	}
}

// NewSubscriptionReconcileJob expires past-due subscriptions whose
// billing period has lapsed without payment.
func NewSubscriptionReconcileJob(expirer subscriptionExpirer, logg *logger.Logger) Job {
	return Job{
		Name: "subscription_reconcile",
		Run: func(ctx context.Context) error {
			expired, err := expirer.ExpirePastDue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if logg != nil && expired > 0 {
				logg.Info(ctx, fmt.Sprintf("expired %d past-due subscriptions", expired))
			}
			return nil
		},
	}
}
