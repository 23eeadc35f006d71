package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultPayPalBaseURL = "https://api-m.paypal.com"

// PayPalClient talks to the PayPal REST API with a client-credentials token.
type PayPalClient struct {
	baseURL string
	client  *http.Client
}

type PayPalOptions struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// HTTPClient is the transport used for both token and API calls.
	HTTPClient *http.Client
}

func NewPayPalClient(opts PayPalOptions) *PayPalClient {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultPayPalBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	client := cc.Client(ctx)
	client.Timeout = hc.Timeout
	return &PayPalClient{baseURL: base, client: client}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Value        string `json:"value"`
}

func (p *PayPalClient) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": req.Receipt,
			"custom_id":    req.Receipt,
			"amount":       paypalAmount{CurrencyCode: req.Currency, Value: MajorUnits(req.Amount, req.Currency)},
		}},
	}
	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	headers := map[string]string{"PayPal-Request-Id": req.Receipt}
	if err := postJSON(ctx, p.client, "paypal", p.baseURL+"/v2/checkout/orders", payload, headers, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("paypal: order response without id")
	}
	return &OrderResponse{OrderID: res.ID, Status: res.Status}, nil
}

// CreatePayout sends a single-item payout batch to the destination email.
// The batch id is the payout reference, so a retried request is rejected by PayPal as a duplicate.
func (p *PayPalClient) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error) {
	if req.Destination == "" {
		return nil, fmt.Errorf("paypal: receiver email is required")
	}
	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": req.Reference,
			"email_subject":   req.Note,
		},
		"items": []map[string]interface{}{{
			"recipient_type": "EMAIL",
			"receiver":       req.Destination,
			"amount":         paypalAmount{Currency: req.Currency, Value: MajorUnits(req.Amount, req.Currency)},
			"note":           req.Note,
			"sender_item_id": req.Reference,
		}},
	}
	var res struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
			BatchStatus   string `json:"batch_status"`
		} `json:"batch_header"`
	}
	if err := postJSON(ctx, p.client, "paypal", p.baseURL+"/v1/payments/payouts", payload, nil, &res); err != nil {
		return nil, err
	}
	if res.BatchHeader.PayoutBatchID == "" {
		return nil, fmt.Errorf("paypal: payout response without batch id")
	}
	return &PayoutResponse{PayoutID: res.BatchHeader.PayoutBatchID, Status: res.BatchHeader.BatchStatus}, nil
}
