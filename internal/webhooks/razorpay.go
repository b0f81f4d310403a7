package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dishpatch/merchant-backend/internal/subscriptions"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
)

// replayTTL keeps processed webhook ids long enough to outlive
// Razorpay's retry schedule.
const replayTTL = 72 * time.Hour

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

type signatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(provider, eventID string) string
}

// RazorpayService verifies and routes Razorpay webhook deliveries.
type RazorpayService struct {
	verifier      signatureVerifier
	guard         replayGuard
	subscriptions subscriptions.Service
	logg          *logger.Logger
}

// NewRazorpayService wires webhook handling for payment events.
func NewRazorpayService(verifier signatureVerifier, guard replayGuard, subs subscriptions.Service, logg *logger.Logger) (*RazorpayService, error) {
	if verifier == nil {
		return nil, fmt.Errorf("signature verifier required")
	}
	if guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	return &RazorpayService{
		verifier:      verifier,
		guard:         guard,
		subscriptions: subs,
		logg:          logg,
	}, nil
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Handle verifies the delivery, drops replays, and applies the payment
// outcome. eventID comes from the X-Razorpay-Event-Id header.
func (s *RazorpayService) Handle(ctx context.Context, body []byte, signature, eventID string) error {
	if !s.verifier.VerifyWebhookSignature(body, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	var event razorpayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		// a missing id falls back to the payment so replays still dedupe
		eventID = event.Event + ":" + event.Payload.Payment.Entity.ID
	}
	replayKey := s.guard.WebhookEventKey("razorpay", eventID)
	fresh, err := s.guard.SetNX(ctx, replayKey, "1", replayTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook replay guard")
	}
	if !fresh {
		if s.logg != nil {
			s.logg.Debug(ctx, fmt.Sprintf("dropping replayed webhook %s", eventID))
		}
		return nil
	}

	if err := s.route(ctx, event); err != nil {
		// releasing the key lets Razorpay's retry take another pass
		if delErr := s.guard.Del(ctx, replayKey); delErr != nil && s.logg != nil {
			s.logg.Error(ctx, "release webhook replay key", delErr)
		}
		return err
	}
	return nil
}

func (s *RazorpayService) route(ctx context.Context, event razorpayEvent) error {
	payment := event.Payload.Payment.Entity
	switch event.Event {
	case eventPaymentCaptured:
		if payment.OrderID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment entity missing order id")
		}
		return s.subscriptions.HandleChargePaid(ctx, payment.OrderID, payment.ID)
	case eventPaymentFailed:
		if payment.OrderID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment entity missing order id")
		}
		reason := payment.ErrorDescription
		if reason == "" {
			reason = payment.ErrorCode
		}
		return s.subscriptions.HandleChargeFailed(ctx, payment.OrderID, reason)
	default:
		if s.logg != nil {
			s.logg.Debug(ctx, fmt.Sprintf("ignoring webhook event %s", event.Event))
		}
		return nil
	}
}
