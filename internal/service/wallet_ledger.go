package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/metrics"
	"sessionescrow/internal/models"
	"sessionescrow/internal/repository"

	"gorm.io/gorm"
)

// WalletNotifier is told about committed wallet changes.
type WalletNotifier interface {
	WalletChanged(hostID uint, reason string)
}

// WalletLedger owns every balance mutation. Balances move only through
// single conditional delta statements, so concurrent writers never lose updates.
type WalletLedger struct {
	wallets  *repository.WalletRepository
	txns     *repository.TransactionRepository
	notifier WalletNotifier
	inTx     bool
	log      *slog.Logger
}

func NewWalletLedger(db *gorm.DB, notifier WalletNotifier, logger *slog.Logger) *WalletLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletLedger{
		wallets:  repository.NewWalletRepository(db),
		txns:     repository.NewTransactionRepository(db),
		notifier: notifier,
		log:      logger.With("component", "wallet-ledger"),
	}
}

// WithTx returns a ledger whose writes join tx. It does not notify; the
// owner of the transaction calls Notify after commit.
func (l *WalletLedger) WithTx(tx *gorm.DB) *WalletLedger {
	return &WalletLedger{
		wallets:  l.wallets.WithTx(tx),
		txns:     l.txns.WithTx(tx),
		notifier: l.notifier,
		inTx:     true,
		log:      l.log,
	}
}

func (l *WalletLedger) Notify(hostID uint, reason string) {
	if l.notifier != nil {
		l.notifier.WalletChanged(hostID, reason)
	}
}

func (l *WalletLedger) notifyNow(hostID uint, reason string) {
	if !l.inTx {
		l.Notify(hostID, reason)
	}
}

// CreditPendingEarnings adds amount to the host's pending earnings and total
// earned, creating the wallet on first credit.
func (l *WalletLedger) CreditPendingEarnings(ctx context.Context, hostID uint, amount int64) error {
	if hostID == 0 || amount < 0 {
		return fmt.Errorf("%w: credit needs a host and a non-negative amount", domain.ErrValidation)
	}
	if amount == 0 {
		return nil
	}
	ok, err := l.wallets.AddPending(ctx, hostID, amount)
	if err != nil {
		return err
	}
	if !ok {
		inserted, err := l.wallets.Insert(ctx, &models.Wallet{
			HostID:          hostID,
			PendingEarnings: amount,
			TotalEarned:     amount,
		})
		if err != nil {
			return err
		}
		if !inserted {
			// another writer created the wallet first
			if ok, err = l.wallets.AddPending(ctx, hostID, amount); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("credit host %d: wallet vanished", hostID)
			}
		}
	}
	l.notifyNow(hostID, "earning_pending")
	return nil
}

// DeductPendingEarnings removes a penalty from pending earnings. A wallet that
// cannot cover it means the ledger is already inconsistent.
func (l *WalletLedger) DeductPendingEarnings(ctx context.Context, hostID uint, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative deduction", domain.ErrValidation)
	}
	if amount == 0 {
		return nil
	}
	ok, err := l.wallets.DeductPending(ctx, hostID, amount)
	if err != nil {
		return err
	}
	if !ok {
		l.invariantViolation("deduct_pending", hostID, amount)
		return fmt.Errorf("%w: host %d pending earnings below %d", domain.ErrInsufficientFunds, hostID, amount)
	}
	l.notifyNow(hostID, "penalty")
	return nil
}

// ReleaseToWithdrawable moves a settled host share from pending to withdrawable
// and records the ESCROW_RELEASE transaction.
func (l *WalletLedger) ReleaseToWithdrawable(ctx context.Context, hostID uint, amount int64, sessionID, currency string) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative release", domain.ErrValidation)
	}
	if amount == 0 {
		return nil
	}
	ok, err := l.wallets.Release(ctx, hostID, amount)
	if err != nil {
		return err
	}
	if !ok {
		l.invariantViolation("release", hostID, amount)
		return fmt.Errorf("%w: host %d pending earnings below %d", domain.ErrInsufficientFunds, hostID, amount)
	}
	w, err := l.wallets.GetByHostID(ctx, hostID)
	if err != nil {
		return err
	}
	sid := sessionID
	if err := l.txns.Create(ctx, &models.Transaction{
		UserID:      hostID,
		SessionID:   &sid,
		WalletID:    &w.ID,
		Type:        domain.TxEscrowRelease,
		Amount:      amount,
		Currency:    currency,
		Status:      domain.TxStatusCompleted,
		Description: "Escrow released to withdrawable balance",
	}); err != nil {
		return err
	}
	l.notifyNow(hostID, "escrow_released")
	return nil
}

// DebitWithdrawable takes a payout out of the withdrawal balance.
func (l *WalletLedger) DebitWithdrawable(ctx context.Context, walletID uint, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit must be positive", domain.ErrValidation)
	}
	ok, err := l.wallets.DebitWithdrawable(ctx, walletID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: wallet %d withdrawal balance below %d", domain.ErrInsufficientFunds, walletID, amount)
	}
	return nil
}

func (l *WalletLedger) Get(ctx context.Context, hostID uint) (*models.Wallet, error) {
	return l.wallets.GetByHostID(ctx, hostID)
}

func (l *WalletLedger) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return l.txns.ListByUser(ctx, userID, limit, offset)
}

// LinkDestination stores where payouts for method go. Linking a PayPal email
// resets its verification.
func (l *WalletLedger) LinkDestination(ctx context.Context, hostID uint, method, account string) (*models.Wallet, error) {
	account = strings.TrimSpace(account)
	if hostID == 0 || account == "" {
		return nil, fmt.Errorf("%w: destination account is required", domain.ErrValidation)
	}
	var fields map[string]interface{}
	switch method {
	case domain.GatewayRazorpay:
		fields = map[string]interface{}{"razorpay_account_id": account}
	case domain.GatewayPayPal:
		if !strings.Contains(account, "@") {
			return nil, fmt.Errorf("%w: paypal destination must be an email", domain.ErrValidation)
		}
		fields = map[string]interface{}{"paypal_email": account, "paypal_verified": false}
	default:
		return nil, fmt.Errorf("%w: unknown payout method %q", domain.ErrValidation, method)
	}
	if _, err := l.wallets.Insert(ctx, &models.Wallet{HostID: hostID}); err != nil {
		return nil, err
	}
	if _, err := l.wallets.UpdateDestination(ctx, hostID, fields); err != nil {
		return nil, err
	}
	l.notifyNow(hostID, "destination_linked")
	return l.wallets.GetByHostID(ctx, hostID)
}

// VerifyDestination marks the linked PayPal email as verified.
func (l *WalletLedger) VerifyDestination(ctx context.Context, hostID uint) (*models.Wallet, error) {
	w, err := l.wallets.GetByHostID(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if w.PayPalEmail == "" {
		return nil, fmt.Errorf("%w: no paypal email linked", domain.ErrStateViolation)
	}
	if _, err := l.wallets.UpdateDestination(ctx, hostID, map[string]interface{}{"paypal_verified": true}); err != nil {
		return nil, err
	}
	l.notifyNow(hostID, "destination_verified")
	return l.wallets.GetByHostID(ctx, hostID)
}

func (l *WalletLedger) invariantViolation(op string, hostID uint, amount int64) {
	metrics.InvariantViolations.WithLabelValues(op).Inc()
	l.log.Error("wallet invariant violation",
		"critical", true,
		"operation", op,
		"host_id", hostID,
		"amount", amount,
	)
}
