package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/merchant-backend/internal/subscriptions"
	"github.com/dishpatch/merchant-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
)

type hmacVerifier struct {
	secret string
}

func (v hmacVerifier) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)) == signature
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type stubGuard struct {
	keys map[string]bool
}

func (g *stubGuard) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if g.keys == nil {
		g.keys = make(map[string]bool)
	}
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *stubGuard) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(g.keys, key)
	}
	return nil
}

func (g *stubGuard) WebhookEventKey(provider, eventID string) string {
	return "dp:webhook:" + provider + ":" + eventID
}

type chargeCall struct {
	kind      string
	orderID   string
	paymentID string
	reason    string
}

type stubSubscriptions struct {
	calls   []chargeCall
	paidErr error
}

func (s *stubSubscriptions) Plans(context.Context) ([]models.BillingPlan, error) { return nil, nil }

func (s *stubSubscriptions) Current(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (s *stubSubscriptions) Subscribe(context.Context, uuid.UUID, string) (*models.Subscription, *subscriptions.PendingCharge, error) {
	return nil, nil, nil
}

func (s *stubSubscriptions) ChangePlan(context.Context, uuid.UUID, string) (*subscriptions.PlanChange, error) {
	return nil, nil
}

func (s *stubSubscriptions) CancelAtPeriodEnd(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

func (s *stubSubscriptions) Charges(context.Context, uuid.UUID) ([]models.Charge, error) {
	return nil, nil
}

func (s *stubSubscriptions) HandleChargePaid(_ context.Context, orderID, paymentID string) error {
	if s.paidErr != nil {
		return s.paidErr
	}
	s.calls = append(s.calls, chargeCall{kind: "paid", orderID: orderID, paymentID: paymentID})
	return nil
}

func (s *stubSubscriptions) HandleChargeFailed(_ context.Context, orderID, reason string) error {
	s.calls = append(s.calls, chargeCall{kind: "failed", orderID: orderID, reason: reason})
	return nil
}

func (s *stubSubscriptions) ExpirePastDue(context.Context, time.Time) (int, error) { return 0, nil }

func newWebhookService(t *testing.T, subs *stubSubscriptions) (*RazorpayService, *stubGuard, string) {
	t.Helper()
	const secret = "whsec_test"
	guard := &stubGuard{}
	svc, err := NewRazorpayService(hmacVerifier{secret: secret}, guard, subs, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, guard, secret
}

func capturedBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"%s","order_id":"%s"}}}}`,
		paymentID, orderID,
	))
}

func TestRazorpayWebhookRejectsBadSignature(t *testing.T) {
	subs := &stubSubscriptions{}
	svc, _, _ := newWebhookService(t, subs)

	body := capturedBody("order_123", "pay_123")
	err := svc.Handle(context.Background(), body, "deadbeef", "evt_1")
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(subs.calls) != 0 {
		t.Fatalf("no charge handling expected, got %v", subs.calls)
	}
}

func TestRazorpayWebhookRoutesCapturedPayment(t *testing.T) {
	subs := &stubSubscriptions{}
	svc, _, secret := newWebhookService(t, subs)

	body := capturedBody("order_123", "pay_123")
	if err := svc.Handle(context.Background(), body, sign(secret, body), "evt_1"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(subs.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(subs.calls))
	}
	got := subs.calls[0]
	if got.kind != "paid" || got.orderID != "order_123" || got.paymentID != "pay_123" {
		t.Fatalf("unexpected call %+v", got)
	}
}

func TestRazorpayWebhookRoutesFailedPayment(t *testing.T) {
	subs := &stubSubscriptions{}
	svc, _, secret := newWebhookService(t, subs)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","error_code":"BAD_REQUEST_ERROR","error_description":"card declined"}}}}`)
	if err := svc.Handle(context.Background(), body, sign(secret, body), "evt_9"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(subs.calls) != 1 || subs.calls[0].kind != "failed" {
		t.Fatalf("expected failed call, got %v", subs.calls)
	}
	if subs.calls[0].reason != "card declined" {
		t.Fatalf("reason = %q", subs.calls[0].reason)
	}
}

func TestRazorpayWebhookDropsReplay(t *testing.T) {
	subs := &stubSubscriptions{}
	svc, _, secret := newWebhookService(t, subs)

	body := capturedBody("order_123", "pay_123")
	signature := sign(secret, body)
	for i := 0; i < 3; i++ {
		if err := svc.Handle(context.Background(), body, signature, "evt_1"); err != nil {
			t.Fatalf("handle %d: %v", i, err)
		}
	}

	if len(subs.calls) != 1 {
		t.Fatalf("replay should be dropped, got %d calls", len(subs.calls))
	}
}

func TestRazorpayWebhookReleasesKeyOnHandlerError(t *testing.T) {
	subs := &stubSubscriptions{paidErr: errors.New("db down")}
	svc, guard, secret := newWebhookService(t, subs)

	body := capturedBody("order_123", "pay_123")
	signature := sign(secret, body)
	if err := svc.Handle(context.Background(), body, signature, "evt_1"); err == nil {
		t.Fatal("expected handler error")
	}

	// retry should make it through once the dependency recovers
	subs.paidErr = nil
	if err := svc.Handle(context.Background(), body, signature, "evt_1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(subs.calls) != 1 {
		t.Fatalf("expected retry to process, got %d calls", len(subs.calls))
	}
	if !guard.keys[guard.WebhookEventKey("razorpay", "evt_1")] {
		t.Fatal("replay key should be held after successful retry")
	}
}

func TestRazorpayWebhookIgnoresOtherEvents(t *testing.T) {
	subs := &stubSubscriptions{}
	svc, _, secret := newWebhookService(t, subs)

	body := []byte(`{"event":"refund.processed","payload":{}}`)
	if err := svc.Handle(context.Background(), body, sign(secret, body), "evt_2"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(subs.calls) != 0 {
		t.Fatalf("no calls expected, got %v", subs.calls)
	}
}
