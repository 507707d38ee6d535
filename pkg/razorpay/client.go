package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	razorpaysdk "github.com/razorpay/razorpay-go"

	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
)

// OrderCreator is the gateway surface checkout depends on.
type OrderCreator interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error)
}

// CreateOrderInput describes the order registered with the gateway before the
// customer is handed off to pay.
type CreateOrderInput struct {
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]interface{}
}

// GatewayOrder is the gateway's view of a registered order.
type GatewayOrder struct {
	ID          string
	AmountPaise int64
	Currency    string
	Status      string
}

// Client wraps the Razorpay SDK plus the secrets needed for verification.
type Client struct {
	api       *razorpaysdk.Client
	keySecret string
}

// NewClient initializes the Razorpay SDK once with the configured key pair.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}

	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	api := razorpaysdk.NewClient(keyID, keySecret)

	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}

	return &Client{
		api:       api,
		keySecret: keySecret,
	}, nil
}

// KeySecret exposes the secret used for signature verification.
func (c *Client) KeySecret() string {
	if c == nil {
		return ""
	}
	return c.keySecret
}

// CreateOrder registers an order with the gateway. The SDK has no context
// support, so the call runs on its own goroutine and honours ctx cancellation
// from the caller's side.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error) {
	if input.AmountPaise <= 0 {
		return nil, fmt.Errorf("razorpay: order amount must be positive, got %d", input.AmountPaise)
	}

	data := map[string]interface{}{
		"amount":   input.AmountPaise,
		"currency": input.Currency,
		"receipt":  input.Receipt,
	}
	if len(input.Notes) > 0 {
		data["notes"] = input.Notes
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := c.api.Order.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("razorpay: create order: %w", res.err)
		}
		return parseGatewayOrder(res.body)
	}
}

func parseGatewayOrder(body map[string]interface{}) (*GatewayOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay: create order response missing id")
	}

	order := &GatewayOrder{ID: id}
	if currency, ok := body["currency"].(string); ok {
		order.Currency = currency
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	switch amount := body["amount"].(type) {
	case float64:
		order.AmountPaise = int64(amount)
	case int64:
		order.AmountPaise = amount
	case int:
		order.AmountPaise = int64(amount)
	}
	return order, nil
}
