package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMajorUnits(t *testing.T) {
	require.Equal(t, "12.34", MajorUnits(1234, "USD"))
	require.Equal(t, "0.05", MajorUnits(5, "INR"))
	require.Equal(t, "0.00", MajorUnits(0, "USD"))
	require.Equal(t, "500", MajorUnits(500, "JPY"))
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_key", user)
		require.Equal(t, "rzp_secret", pass)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 50000, body["amount"])
		require.Equal(t, "INR", body["currency"])
		require.Equal(t, "session_abc", body["receipt"])
		_, _ = w.Write([]byte(`{"id":"order_123","status":"created"}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(RazorpayOptions{BaseURL: srv.URL, KeyID: "rzp_key", KeySecret: "rzp_secret"})
	res, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 50000, Currency: "INR", Receipt: "session_abc"})
	require.NoError(t, err)
	require.Equal(t, "order_123", res.OrderID)
}

func TestRazorpayCreatePayoutSendsIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payouts", r.URL.Path)
		require.Equal(t, "ref-1", r.Header.Get("X-Payout-Idempotency"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "fa_1", body["fund_account_id"])
		require.Equal(t, "2323230000000", body["account_number"])
		require.Equal(t, "IMPS", body["mode"])
		_, _ = w.Write([]byte(`{"id":"pout_1","status":"processing"}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(RazorpayOptions{BaseURL: srv.URL, KeyID: "k", KeySecret: "s", AccountNumber: "2323230000000"})
	res, err := c.CreatePayout(context.Background(), PayoutRequest{Destination: "fa_1", Amount: 100000, Currency: "INR", Reference: "ref-1"})
	require.NoError(t, err)
	require.Equal(t, "pout_1", res.PayoutID)
}

func TestRazorpayAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(RazorpayOptions{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})
	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	_, err = NewRazorpayClient(RazorpayOptions{BaseURL: srv.URL}).CreateOrder(context.Background(), OrderRequest{})
	require.Error(t, err)
}

func TestPayPalClientUsesClientCredentials(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "pp_client", user)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body struct {
			PurchaseUnits []struct {
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "49.99", body.PurchaseUnits[0].Amount.Value)
		require.Equal(t, "USD", body.PurchaseUnits[0].Amount.CurrencyCode)
		_, _ = w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED"}`))
	})
	mux.HandleFunc("/v1/payments/payouts", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"batch_header":{"payout_batch_id":"BATCH-1","batch_status":"PENDING"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewPayPalClient(PayPalOptions{BaseURL: srv.URL, ClientID: "pp_client", ClientSecret: "pp_secret"})
	order, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 4999, Currency: "USD", Receipt: "session_1"})
	require.NoError(t, err)
	require.Equal(t, "5O190127TN364715T", order.OrderID)

	payout, err := c.CreatePayout(context.Background(), PayoutRequest{Destination: "host@example.com", Amount: 5000, Currency: "USD", Reference: "ref"})
	require.NoError(t, err)
	require.Equal(t, "BATCH-1", payout.PayoutID)
	require.Equal(t, 1, tokenCalls)
}

func TestStubGateway(t *testing.T) {
	var g Gateway = &StubGateway{}
	o, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 1})
	require.NoError(t, err)
	p, err := g.CreatePayout(context.Background(), PayoutRequest{Amount: 1})
	require.NoError(t, err)
	require.NotEqual(t, o.OrderID, p.PayoutID)
}
