package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"sessionescrow/internal/domain"
)

const RazorpaySignatureHeader = "X-Razorpay-Signature"

// WebhookVerifier authenticates raw webhook bodies per gateway.
type WebhookVerifier struct {
	razorpaySecret string
	paypal         *PayPalCertVerifier
	log            *slog.Logger
}

func NewWebhookVerifier(razorpaySecret string, paypal *PayPalCertVerifier, logger *slog.Logger) *WebhookVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookVerifier{
		razorpaySecret: razorpaySecret,
		paypal:         paypal,
		log:            logger.With("component", "webhook-verifier"),
	}
}

// Verify reports whether body was signed by gateway. It never errors; every failure is a rejection.
func (v *WebhookVerifier) Verify(ctx context.Context, gateway string, body []byte, header http.Header) bool {
	switch gateway {
	case domain.GatewayRazorpay:
		return VerifyRazorpaySignature(v.razorpaySecret, body, header.Get(RazorpaySignatureHeader))
	case domain.GatewayPayPal:
		if v.paypal == nil {
			return false
		}
		if err := v.paypal.Verify(ctx, body, header); err != nil {
			v.log.Warn("paypal signature rejected", "error", err)
			return false
		}
		return true
	default:
		return false
	}
}

// VerifyRazorpaySignature compares hex(HMAC-SHA256(secret, body)) with signature in constant time.
func VerifyRazorpaySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
