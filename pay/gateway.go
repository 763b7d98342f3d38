package pay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"wanderlust/config"
	"wanderlust/utils"
)

// Order is a gateway order the client completes a payment against.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Gateway is the part of the payment provider API the service calls.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)
	Refund(ctx context.Context, paymentID string, amount int64) (*Refund, error)
}

// Client talks to the gateway REST API with key id / secret basic auth.
// Amounts are in minor units.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http:      &http.Client{Timeout: 15 * time.Second},
		breaker:   utils.NewBreaker[[]byte]("payment-gateway", utils.BreakerSettings{}),
	}
}

// apiError is a 4xx from the gateway. It does not count against the breaker.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.status, e.body)
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	var o Order
	err := c.do(ctx, http.MethodPost, "/orders", map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}, &o)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Refund(ctx context.Context, paymentID string, amount int64) (*Refund, error) {
	var rf Refund
	if err := c.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", map[string]any{"amount": amount}, &rf); err != nil {
		return nil, err
	}
	return &rf, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	var clientErr *apiError
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.keyID, c.keySecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			clientErr = &apiError{status: resp.StatusCode, body: string(raw)}
		}
		return raw, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("[Gateway] request failed")
		return utils.BreakerErr(fmt.Errorf("%w: %w", utils.ErrUpstream, err))
	}
	if clientErr != nil {
		log.Warn().Int("status", clientErr.status).Str("path", path).Msg("[Gateway] rejected")
		return fmt.Errorf("%w: %w", utils.ErrUpstream, clientErr)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode gateway response: %v", utils.ErrUpstream, err)
	}
	return nil
}
