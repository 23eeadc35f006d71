package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/metrics"
	"sessionescrow/internal/service"
	"sessionescrow/pkg/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// WebhookHandler accepts gateway notifications. Every body is verified before it is parsed.
type WebhookHandler struct {
	verifier *payment.WebhookVerifier
	sessions *service.SessionLedger
	payouts  *service.PayoutRequestor
	log      *slog.Logger
}

func NewWebhookHandler(verifier *payment.WebhookVerifier, sessions *service.SessionLedger, payouts *service.PayoutRequestor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		sessions: sessions,
		payouts:  payouts,
		log:      logger.With("component", "webhook"),
	}
}

type razorpayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Method   string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
		Payout struct {
			Entity struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				FailureReason string `json:"failure_reason"`
			} `json:"entity"`
		} `json:"payout"`
	} `json:"payload"`
}

type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
			BatchStatus   string `json:"batch_status"`
		} `json:"batch_header"`
	} `json:"resource"`
}

// readVerified returns the raw body when its signature checks out, or writes the rejection.
func (h *WebhookHandler) readVerified(c *gin.Context, gateway string) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(gateway, "bad_body").Inc()
		badRequest(c, "invalid body")
		return nil, false
	}
	if !h.verifier.Verify(c.Request.Context(), gateway, body, c.Request.Header) {
		metrics.WebhooksTotal.WithLabelValues(gateway, "bad_signature").Inc()
		h.log.Warn("webhook signature rejected", "gateway", gateway, "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid signature", "kind": domain.Kind(domain.ErrAuthentication)})
		return nil, false
	}
	return body, true
}

// Razorpay handles POST /api/v1/webhooks/razorpay.
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	body, ok := h.readVerified(c, domain.GatewayRazorpay)
	if !ok {
		return
	}
	var ev razorpayEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.WebhooksTotal.WithLabelValues(domain.GatewayRazorpay, "bad_json").Inc()
		badRequest(c, "invalid json")
		return
	}

	var err error
	switch ev.Event {
	case "payment.captured":
		p := ev.Payload.Payment.Entity
		err = h.capture(c, domain.GatewayRazorpay, p.OrderID, p.ID, map[string]interface{}{
			"event":    ev.Event,
			"amount":   p.Amount,
			"currency": p.Currency,
			"method":   p.Method,
		})
	case "payout.processed":
		_, err = h.payouts.FinalizePayout(c.Request.Context(), domain.GatewayRazorpay, ev.Payload.Payout.Entity.ID, true, "")
	case "payout.failed", "payout.reversed", "payout.rejected":
		po := ev.Payload.Payout.Entity
		reason := po.FailureReason
		if reason == "" {
			reason = ev.Event
		}
		_, err = h.payouts.FinalizePayout(c.Request.Context(), domain.GatewayRazorpay, po.ID, false, reason)
	default:
		h.log.Debug("webhook event ignored", "gateway", domain.GatewayRazorpay, "event", ev.Event)
	}
	h.finish(c, domain.GatewayRazorpay, ev.Event, err)
}

// PayPal handles POST /api/v1/webhooks/paypal.
func (h *WebhookHandler) PayPal(c *gin.Context) {
	body, ok := h.readVerified(c, domain.GatewayPayPal)
	if !ok {
		return
	}
	var ev paypalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.WebhooksTotal.WithLabelValues(domain.GatewayPayPal, "bad_json").Inc()
		badRequest(c, "invalid json")
		return
	}

	var err error
	switch ev.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		r := ev.Resource
		orderID := r.SupplementaryData.RelatedIDs.OrderID
		if orderID == "" {
			orderID = r.ID
		}
		err = h.capture(c, domain.GatewayPayPal, orderID, r.ID, map[string]interface{}{
			"event":    ev.EventType,
			"event_id": ev.ID,
			"amount":   r.Amount.Value,
			"currency": r.Amount.CurrencyCode,
		})
	case "PAYMENT.PAYOUTSBATCH.SUCCESS":
		_, err = h.payouts.FinalizePayout(c.Request.Context(), domain.GatewayPayPal, ev.Resource.BatchHeader.PayoutBatchID, true, "")
	case "PAYMENT.PAYOUTSBATCH.DENIED":
		_, err = h.payouts.FinalizePayout(c.Request.Context(), domain.GatewayPayPal, ev.Resource.BatchHeader.PayoutBatchID, false, "payout batch denied")
	default:
		h.log.Debug("webhook event ignored", "gateway", domain.GatewayPayPal, "event", ev.EventType)
	}
	h.finish(c, domain.GatewayPayPal, ev.EventType, err)
}

// capture records the payment and moves it into escrow. Both steps are idempotent.
func (h *WebhookHandler) capture(c *gin.Context, gateway, orderRef, captureRef string, meta map[string]interface{}) error {
	s, err := h.sessions.RecordCapture(c.Request.Context(), gateway, orderRef, captureRef, meta)
	if err != nil {
		return err
	}
	if amount, ok := meta["amount"].(int64); ok && amount != s.AmountPaid {
		h.log.Warn("captured amount differs from session price", "session_id", s.ID, "captured", amount, "expected", s.AmountPaid)
	}
	return h.sessions.HoldInEscrow(c.Request.Context(), s.ID)
}

func (h *WebhookHandler) finish(c *gin.Context, gateway, event string, err error) {
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(gateway, domain.Kind(err)).Inc()
		level := slog.LevelWarn
		if statusFor(err) == http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.log.Log(c.Request.Context(), level, "webhook processing failed", "gateway", gateway, "event", event, "error", err)
		respondError(c, err)
		return
	}
	metrics.WebhooksTotal.WithLabelValues(gateway, "processed").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event processed"})
}
