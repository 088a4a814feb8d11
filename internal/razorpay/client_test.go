package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("rzp_test_key", "rzp_test_secret", srv.URL, 5*time.Second, nil)
	return c, srv
}

func TestCreateOrder(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotReq OrderRequest

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(Order{
			ID:       "order_abc",
			Amount:   gotReq.Amount,
			Currency: gotReq.Currency,
			Receipt:  gotReq.Receipt,
			Status:   OrderStatusCreated,
			Notes:    gotReq.Notes,
		})
	}))

	order, err := c.CreateOrder(context.Background(), OrderRequest{
		Amount:   4900,
		Currency: "INR",
		Receipt:  "tb_1",
		Notes:    map[string]string{"user_id": "42", "plan_id": "monthly_premium"},
	})
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_key", gotAuthUser)
	assert.Equal(t, "rzp_test_secret", gotAuthPass)
	assert.Equal(t, 4900, gotReq.Amount)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, OrderStatusCreated, order.Status)
	assert.Equal(t, "42", order.Notes["user_id"])
}

func TestCreateOrderRejectsEmptyID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Order{})
	}))

	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty order id")
}

func TestFetchOrder(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders/order_abc", r.URL.Path)
		json.NewEncoder(w).Encode(Order{ID: "order_abc", Status: OrderStatusPaid, Amount: 4900})
	}))

	order, err := c.FetchOrder(context.Background(), "order_abc")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, order.Status)
}

func TestFetchPayment(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_9", r.URL.Path)
		json.NewEncoder(w).Encode(Payment{ID: "pay_9", OrderID: "order_abc", Status: "captured"})
	}))

	payment, err := c.FetchPayment(context.Background(), "pay_9")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", payment.OrderID)
	assert.Equal(t, "captured", payment.Status)
}

func TestDoRetriesServerErrors(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Order{ID: "order_retry", Status: OrderStatusCreated})
	}))

	order, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "order_retry", order.ID)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))

	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestCheckoutURL(t *testing.T) {
	c := NewClient("rzp_test_key", "secret", "https://api.razorpay.com", 0, nil)
	order := &Order{ID: "order_abc", Amount: 4900, Currency: "INR"}

	raw := c.CheckoutURL(order, "Terabox Premium", "Monthly Premium", 42, "monthly_premium", "tok123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "order_abc", q.Get("order_id"))
	assert.Equal(t, "rzp_test_key", q.Get("key"))
	assert.Equal(t, "4900", q.Get("amount"))
	assert.Equal(t, "42", q.Get("notes[user_id]"))
	assert.Equal(t, "monthly_premium", q.Get("notes[plan_id]"))
	assert.Equal(t, "tok123", q.Get("notes[cb]"))
}
