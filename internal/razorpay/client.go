package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts  = 3
	retryBackoff = time.Second
)

// Client talks to the Razorpay orders and payments API with basic auth.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// OrderRequest describes an order to create. Amount is in paise.
type OrderRequest struct {
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order statuses reported by the gateway.
const (
	OrderStatusCreated   = "created"
	OrderStatusAttempted = "attempted"
	OrderStatusPaid      = "paid"
)

type Order struct {
	ID       string            `json:"id"`
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type Payment struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Amount   int               `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func NewClient(keyID, keySecret, baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// CreateOrder registers a new order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", req, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("create order: empty order id in response")
	}
	return &order, nil
}

// FetchOrder returns the current gateway view of an order.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return &order, nil
}

// FetchPayment returns the current gateway view of a payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	return &payment, nil
}

// CheckoutURL builds the hosted checkout link for an order. The callback
// token rides along in the notes so the return leg can be correlated without
// a session store.
func (c *Client) CheckoutURL(order *Order, name, description string, userID int64, planID, callbackToken string) string {
	params := url.Values{}
	params.Set("key", c.keyID)
	params.Set("order_id", order.ID)
	params.Set("amount", strconv.Itoa(order.Amount))
	params.Set("currency", order.Currency)
	params.Set("name", name)
	params.Set("description", description)
	params.Set("notes[user_id]", strconv.FormatInt(userID, 10))
	params.Set("notes[plan_id]", planID)
	if callbackToken != "" {
		params.Set("notes[cb]", callbackToken)
	}
	return "https://rzp.io/i/checkout?" + params.Encode()
}

// do issues one API call with a small fixed retry on transport errors and
// 5xx responses. 4xx responses are terminal.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.SetBasicAuth(c.keyID, c.keySecret)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("gateway request: %w", err)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read gateway response: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("gateway status %d: %s", resp.StatusCode, truncateBody(raw))
			continue
		}
		if resp.StatusCode >= 400 {
			var apiErr apiError
			if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Description != "" {
				return fmt.Errorf("gateway error %s: %s", apiErr.Error.Code, apiErr.Error.Description)
			}
			return fmt.Errorf("gateway status %d: %s", resp.StatusCode, truncateBody(raw))
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode gateway response: %w (body=%s)", err, truncateBody(raw))
		}
		return nil
	}
	if c.log != nil {
		c.log.Error("gateway call failed after retries", "method", method, "path", path, "err", lastErr)
	}
	return lastErr
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
