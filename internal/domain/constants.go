package domain

const (
	RoleSeeker = "SEEKER"
	RoleHost   = "HOST"
	RoleAdmin  = "ADMIN"
)

// Gateways form a closed set; adding one means adding a constant here and a case in every switch on it.
const (
	GatewayRazorpay = "RAZORPAY"
	GatewayPayPal   = "PAYPAL"
)

func ValidGateway(g string) bool {
	return g == GatewayRazorpay || g == GatewayPayPal
}

const (
	SessionTypeLoveChat  = "LOVE_CHAT"
	SessionTypeVoiceCall = "VOICE_CALL"
	SessionTypeVideoCall = "VIDEO_CALL"
	SessionTypePremium   = "PREMIUM_EXPERIENCE"
)

func ValidSessionType(t string) bool {
	switch t {
	case SessionTypeLoveChat, SessionTypeVoiceCall, SessionTypeVideoCall, SessionTypePremium:
		return true
	}
	return false
}

// Session lifecycle.
const (
	SessionPendingPayment  = "PENDING_PAYMENT"
	SessionPaymentReceived = "PAYMENT_RECEIVED"
	SessionCompleted       = "COMPLETED"
)

const (
	PaymentPending      = "PENDING"
	PaymentCaptured     = "CAPTURED"
	PaymentHeldInEscrow = "HELD_IN_ESCROW"
	PaymentReleased     = "RELEASED"
)

const (
	SettlementPending   = "PENDING"
	SettlementCompleted = "COMPLETED"
)

const (
	TxCreditPurchase   = "CREDIT_PURCHASE"
	TxSessionEarning   = "SESSION_EARNING"
	TxPlatformFee      = "PLATFORM_FEE"
	TxPenaltyDeduction = "PENALTY_DEDUCTION"
	TxEscrowRelease    = "ESCROW_RELEASE"
	TxPayout           = "PAYOUT"
)

const TxStatusCompleted = "COMPLETED"

const (
	PayoutProcessing = "PROCESSING"
	PayoutCompleted  = "COMPLETED"
	PayoutFailed     = "FAILED"
)

var sessionRank = map[string]int{
	SessionPendingPayment:  0,
	SessionPaymentReceived: 1,
	SessionCompleted:       2,
}

var paymentRank = map[string]int{
	PaymentPending:      0,
	PaymentCaptured:     1,
	PaymentHeldInEscrow: 2,
	PaymentReleased:     3,
}

// SessionAtLeast reports whether status has reached target in the session lifecycle.
func SessionAtLeast(status, target string) bool {
	return sessionRank[status] >= sessionRank[target]
}

// PaymentAtLeast reports whether status has reached target in the payment substate.
func PaymentAtLeast(status, target string) bool {
	return paymentRank[status] >= paymentRank[target]
}
