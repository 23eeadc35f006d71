package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayClient creates checkout orders and RazorpayX payouts over the REST API.
type RazorpayClient struct {
	baseURL       string
	keyID         string
	keySecret     string
	accountNumber string
	payoutMode    string
	client        *http.Client
}

type RazorpayOptions struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	AccountNumber string
	PayoutMode    string
	HTTPClient    *http.Client
}

func NewRazorpayClient(opts RazorpayOptions) *RazorpayClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultRazorpayBaseURL
	}
	mode := opts.PayoutMode
	if mode == "" {
		mode = "IMPS"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &RazorpayClient{
		baseURL:       base,
		keyID:         opts.KeyID,
		keySecret:     opts.KeySecret,
		accountNumber: opts.AccountNumber,
		payoutMode:    mode,
		client:        hc,
	}
}

// do posts with the key pair as basic auth.
func (r *RazorpayClient) do(ctx context.Context, path string, payload interface{}, headers map[string]string, out interface{}) error {
	if r.keyID == "" || r.keySecret == "" {
		return fmt.Errorf("razorpay: key id and secret are required")
	}
	client := *r.client
	client.Transport = &basicAuthTransport{user: r.keyID, pass: r.keySecret, base: r.client.Transport}
	return postJSON(ctx, &client, "razorpay", r.baseURL+path, payload, headers, out)
}

func (r *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	payload := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}
	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := r.do(ctx, "/v1/orders", payload, nil, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("razorpay: order response without id")
	}
	return &OrderResponse{OrderID: res.ID, Status: res.Status}, nil
}

// CreatePayout draws from the RazorpayX account into the host's fund account.
// Destination is the fund account id.
func (r *RazorpayClient) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if req.Destination == "" {
		return nil, fmt.Errorf("razorpay: fund account id is required")
	}
	payload := map[string]interface{}{
		"account_number":       r.accountNumber,
		"fund_account_id":      req.Destination,
		"amount":               req.Amount,
		"currency":             req.Currency,
		"mode":                 r.payoutMode,
		"purpose":              "payout",
		"queue_if_low_balance": true,
		"reference_id":         req.Reference,
		"narration":            req.Note,
	}
	headers := map[string]string{"X-Payout-Idempotency": req.Reference}
	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := r.do(ctx, "/v1/payouts", payload, headers, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("razorpay: payout response without id")
	}
	return &PayoutResponse{PayoutID: res.ID, Status: res.Status}, nil
}

type basicAuthTransport struct {
	user, pass string
	base       http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.user, t.pass)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
