package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// OrderRequest asks a gateway to open a checkout order. Amount is in minor units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type OrderResponse struct {
	OrderID string
	Status  string
}

// PayoutRequest sends money to a linked destination (RazorpayX fund account or PayPal email).
type PayoutRequest struct {
	Destination string
	Amount      int64
	Currency    string
	Note        string
	// Reference is our payout reference; gateways use it for idempotency.
	Reference string
}

type PayoutResponse struct {
	PayoutID string
	Status   string
}

// Gateway is the opaque collaborator boundary: each call returns an identifier or fails.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error)
}

// APIError is a non-2xx answer from a gateway.
type APIError struct {
	Gateway    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api: %d %s", e.Gateway, e.StatusCode, e.Body)
}

var zeroDecimalCurrencies = map[string]bool{"JPY": true, "KRW": true, "VND": true}

// MajorUnits renders a minor-unit amount the way REST gateways expect it ("12.34").
func MajorUnits(amount int64, currency string) string {
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(amount).StringFixed(0)
	}
	return decimal.New(amount, -2).StringFixed(2)
}

func postJSON(ctx context.Context, client *http.Client, gateway, url string, payload interface{}, headers map[string]string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Gateway: gateway, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return json.Unmarshal(respBody, out)
}
