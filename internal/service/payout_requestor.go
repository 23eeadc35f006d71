package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/metrics"
	"sessionescrow/internal/models"
	"sessionescrow/internal/repository"
	"sessionescrow/pkg/payment"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutGuard serializes payouts per host and throttles repeated attempts.
// Acquire returns a release func, or an error that refuses the request.
type PayoutGuard interface {
	Acquire(ctx context.Context, hostID uint) (func(context.Context), error)
}

type PayoutOptions struct {
	MinWithdrawal   map[string]int64
	DefaultCurrency string
	Note            string
}

// PayoutRequestor moves money from a host's withdrawal balance to the host's
// linked destination through the gateway.
type PayoutRequestor struct {
	db       *gorm.DB
	payouts  *repository.PayoutRepository
	txns     *repository.TransactionRepository
	wallets  *WalletLedger
	gateways Gateways
	guard    PayoutGuard
	opts     PayoutOptions
	now      func() time.Time
	log      *slog.Logger
}

func NewPayoutRequestor(db *gorm.DB, wallets *WalletLedger, gateways Gateways, guard PayoutGuard, opts PayoutOptions, logger *slog.Logger) *PayoutRequestor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Note == "" {
		opts.Note = "Session earnings payout"
	}
	return &PayoutRequestor{
		db:       db,
		payouts:  repository.NewPayoutRepository(db),
		txns:     repository.NewTransactionRepository(db),
		wallets:  wallets,
		gateways: gateways,
		guard:    guard,
		opts:     opts,
		now:      time.Now,
		log:      logger.With("component", "payout"),
	}
}

// RequestPayout validates the request, calls the gateway and then debits the
// wallet. The wallet is re-read and re-checked once the per-host guard is held.
// When the gateway accepted the payout but the ledger write fails, a payout
// flagged for reconciliation is returned with ErrReconciliationRequired.
func (p *PayoutRequestor) RequestPayout(ctx context.Context, hostID uint, amount int64, method, currency string) (*models.Payout, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !domain.ValidGateway(method) {
		return nil, fmt.Errorf("%w: unknown payout method %q", domain.ErrValidation, method)
	}
	if currency == "" {
		currency = p.opts.DefaultCurrency
	}
	if _, _, err := p.eligible(ctx, hostID, amount, method, currency); err != nil {
		return nil, err
	}
	gw, ok := p.gateways[method]
	if !ok {
		return nil, fmt.Errorf("%w: payout method %q is not configured", domain.ErrValidation, method)
	}

	if p.guard != nil {
		release, err := p.guard.Acquire(ctx, hostID)
		if err != nil {
			metrics.PayoutsTotal.WithLabelValues(method, "refused").Inc()
			return nil, err
		}
		defer release(context.WithoutCancel(ctx))
	}
	w, destination, err := p.eligible(ctx, hostID, amount, method, currency)
	if err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	res, err := gw.CreatePayout(ctx, payment.PayoutRequest{
		Destination: destination,
		Amount:      amount,
		Currency:    currency,
		Note:        p.opts.Note,
		Reference:   ref,
	})
	if err != nil {
		metrics.PayoutsTotal.WithLabelValues(method, "gateway_error").Inc()
		p.log.Warn("gateway payout failed", "host_id", hostID, "reference", ref, "error", err)
		return nil, fmt.Errorf("%w: create payout: %v", domain.ErrGateway, err)
	}

	payout := &models.Payout{
		WalletID:         w.ID,
		HostID:           hostID,
		Reference:        ref,
		Amount:           amount,
		Currency:         currency,
		Method:           method,
		ExternalPayoutID: res.PayoutID,
		Status:           domain.PayoutProcessing,
	}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.payouts.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		if err := p.wallets.WithTx(tx).DebitWithdrawable(ctx, w.ID, amount); err != nil {
			return err
		}
		return p.txns.WithTx(tx).Create(ctx, &models.Transaction{
			UserID:      hostID,
			WalletID:    &w.ID,
			Type:        domain.TxPayout,
			Amount:      amount,
			Currency:    currency,
			Gateway:     method,
			ExternalRef: res.PayoutID,
			Status:      domain.TxStatusCompleted,
			Description: "Payout to " + method,
		})
	})
	if err != nil {
		return p.flagForReconciliation(ctx, payout, err)
	}

	metrics.PayoutsTotal.WithLabelValues(method, "processing").Inc()
	p.wallets.Notify(hostID, "payout")
	p.log.Info("payout requested", "host_id", hostID, "payout_id", payout.ID, "external_id", res.PayoutID, "amount", amount)
	return payout, nil
}

// flagForReconciliation records a payout the gateway accepted but the ledger did not.
func (p *PayoutRequestor) flagForReconciliation(ctx context.Context, payout *models.Payout, cause error) (*models.Payout, error) {
	metrics.InvariantViolations.WithLabelValues("payout_ledger_write").Inc()
	metrics.PayoutsTotal.WithLabelValues(payout.Method, "reconciliation").Inc()
	p.log.Error("payout sent but ledger write failed",
		"critical", true,
		"host_id", payout.HostID,
		"reference", payout.Reference,
		"external_id", payout.ExternalPayoutID,
		"amount", payout.Amount,
		"error", cause,
	)
	ctx = context.WithoutCancel(ctx)
	reason := truncate(cause.Error(), 255)
	recon := *payout
	recon.NeedsReconciliation = true
	recon.FailureReason = reason

	// the row may have survived the failed write; flag it rather than duplicate the reference
	var err error
	if existing, lookupErr := p.payouts.GetByReference(ctx, payout.Reference); lookupErr == nil {
		recon = *existing
		recon.NeedsReconciliation = true
		recon.FailureReason = reason
		_, err = p.payouts.FlagReconciliation(ctx, existing.ID, reason)
	} else {
		recon.ID = 0
		err = p.payouts.Create(ctx, &recon)
	}
	if err != nil {
		p.log.Error("reconciliation record write failed",
			"critical", true,
			"reference", payout.Reference,
			"external_id", payout.ExternalPayoutID,
			"error", err,
		)
	}
	return &recon, fmt.Errorf("%w: payout %s: %v", domain.ErrReconciliationRequired, payout.Reference, cause)
}

// FinalizePayout applies the gateway's final word on a PROCESSING payout. A failed
// payout is flagged for reconciliation; the balance is never credited back here.
func (p *PayoutRequestor) FinalizePayout(ctx context.Context, method, externalID string, succeeded bool, reason string) (*models.Payout, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: payout id is required", domain.ErrValidation)
	}
	payout, err := p.payouts.GetByExternalID(ctx, method, externalID)
	if err != nil {
		return nil, err
	}
	if payout.Status != domain.PayoutProcessing {
		return payout, nil
	}
	status := domain.PayoutCompleted
	needsRecon := payout.NeedsReconciliation
	if !succeeded {
		status = domain.PayoutFailed
		needsRecon = true
	}
	ok, err := p.payouts.Finalize(ctx, payout.ID, status, needsRecon, truncate(reason, 255), p.now().UTC())
	if err != nil {
		return nil, err
	}
	if ok {
		if succeeded {
			p.log.Info("payout completed", "payout_id", payout.ID, "external_id", externalID)
		} else {
			p.log.Warn("payout failed, flagged for reconciliation", "payout_id", payout.ID, "external_id", externalID, "reason", reason)
		}
		metrics.PayoutsTotal.WithLabelValues(method, status).Inc()
		p.wallets.Notify(payout.HostID, "payout_"+status)
	}
	return p.payouts.GetByExternalID(ctx, method, externalID)
}

func (p *PayoutRequestor) ListReconciliation(ctx context.Context, limit int) ([]models.Payout, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return p.payouts.ListNeedsReconciliation(ctx, limit)
}

func (p *PayoutRequestor) ListForHost(ctx context.Context, hostID uint, limit int) ([]models.Payout, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return p.payouts.ListByHost(ctx, hostID, limit)
}

// eligible returns the wallet and payout destination when the host can be paid amount.
func (p *PayoutRequestor) eligible(ctx context.Context, hostID uint, amount int64, method, currency string) (*models.Wallet, string, error) {
	w, err := p.wallets.Get(ctx, hostID)
	if err != nil {
		return nil, "", err
	}
	if w.WithdrawalBalance < amount {
		return nil, "", fmt.Errorf("%w: withdrawal balance %d below %d", domain.ErrInsufficientFunds, w.WithdrawalBalance, amount)
	}
	minAmount, ok := p.opts.MinWithdrawal[currency]
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported payout currency %q", domain.ErrValidation, currency)
	}
	if amount < minAmount {
		return nil, "", fmt.Errorf("%w: minimum withdrawal is %d", domain.ErrValidation, minAmount)
	}
	destination, err := destinationFor(w, method)
	if err != nil {
		return nil, "", err
	}
	return w, destination, nil
}

func destinationFor(w *models.Wallet, method string) (string, error) {
	switch method {
	case domain.GatewayRazorpay:
		if w.RazorpayAccountID == "" {
			return "", fmt.Errorf("%w: no razorpay account linked", domain.ErrValidation)
		}
		return w.RazorpayAccountID, nil
	case domain.GatewayPayPal:
		if w.PayPalEmail == "" || !w.PayPalVerified {
			return "", fmt.Errorf("%w: paypal email not linked or not verified", domain.ErrValidation)
		}
		return w.PayPalEmail, nil
	}
	return "", fmt.Errorf("%w: unknown payout method %q", domain.ErrValidation, method)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
