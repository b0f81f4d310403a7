package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	rzpsdk "github.com/razorpay/razorpay-go"

	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/logger"
)

var (
	errKeyIDRequired         = errors.New("razorpay key id is required")
	errKeySecretRequired     = errors.New("razorpay key secret is required")
	errWebhookSecretRequired = errors.New("razorpay webhook secret is required")
)

// Client wraps the Razorpay SDK plus webhook signature verification.
type Client struct {
	api           *rzpsdk.Client
	keyID         string
	webhookSecret string
}

// NewClient initializes Razorpay once with the configured credentials.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	api := rzpsdk.NewClient(keyID, keySecret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		api:           api,
		keyID:         keyID,
		webhookSecret: webhookSecret,
	}, nil
}

// API returns the underlying Razorpay SDK client.
func (c *Client) API() *rzpsdk.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// KeyID returns the configured public key id.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// VerifyWebhookSignature checks the X-Razorpay-Signature HMAC over the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil {
		return false
	}
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}

// CreateOrder creates a Razorpay order for the given amount in paise.
func (c *Client) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]interface{}) (map[string]interface{}, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("razorpay client not initialized")
	}

	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	return c.api.Order.Create(data, nil)
}

// FetchPayment retrieves a payment by id.
func (c *Client) FetchPayment(paymentID string) (map[string]interface{}, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("razorpay client not initialized")
	}
	return c.api.Payment.Fetch(paymentID, nil, nil)
}
