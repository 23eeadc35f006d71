package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/models"
	"sessionescrow/internal/repository"
	"sessionescrow/pkg/payment"
	"sessionescrow/pkg/penalty"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gateways maps a gateway constant to its client.
type Gateways map[string]payment.Gateway

type SessionLedgerOptions struct {
	// Prices is the default session price per currency, used when an order names no amount.
	Prices    map[string]int64
	BatchSize int
}

type CreateSessionInput struct {
	SeekerID    uint
	HostID      uint
	SessionType string
	Amount      int64
	Currency    string
	Gateway     string
}

// Settlement is the money outcome of a completed session.
type Settlement struct {
	SessionID         string `json:"session_id"`
	PlatformShare     int64  `json:"platform_share"`
	HostShare         int64  `json:"host_share"`
	PenaltyApplied    int64  `json:"penalty_applied"`
	SatisfactionScore int    `json:"satisfaction_score"`
}

// SessionLedger drives a session through payment, escrow and completion.
type SessionLedger struct {
	db       *gorm.DB
	sessions *repository.SessionRepository
	txns     *repository.TransactionRepository
	wallets  *WalletLedger
	gateways Gateways
	policy   penalty.Policy
	opts     SessionLedgerOptions
	now      func() time.Time
	log      *slog.Logger
}

func NewSessionLedger(db *gorm.DB, wallets *WalletLedger, gateways Gateways, policy penalty.Policy, opts SessionLedgerOptions, logger *slog.Logger) *SessionLedger {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &SessionLedger{
		db:       db,
		sessions: repository.NewSessionRepository(db),
		txns:     repository.NewTransactionRepository(db),
		wallets:  wallets,
		gateways: gateways,
		policy:   policy,
		opts:     opts,
		now:      time.Now,
		log:      logger.With("component", "session-ledger"),
	}
}

func (l *SessionLedger) Get(ctx context.Context, id string) (*models.Session, error) {
	return l.sessions.GetByID(ctx, id)
}

func (l *SessionLedger) CreateSession(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	switch {
	case in.SeekerID == 0 || in.HostID == 0:
		return nil, fmt.Errorf("%w: seeker and host are required", domain.ErrValidation)
	case in.SeekerID == in.HostID:
		return nil, fmt.Errorf("%w: seeker and host must differ", domain.ErrValidation)
	case !domain.ValidSessionType(in.SessionType):
		return nil, fmt.Errorf("%w: unknown session type %q", domain.ErrValidation, in.SessionType)
	case len(in.Currency) != 3:
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", domain.ErrValidation)
	case !domain.ValidGateway(in.Gateway):
		return nil, fmt.Errorf("%w: unknown gateway %q", domain.ErrValidation, in.Gateway)
	case in.Amount <= 0:
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	base := l.policy.BaseSplit(in.Amount)
	s := &models.Session{
		SeekerID:         in.SeekerID,
		HostID:           in.HostID,
		SessionType:      in.SessionType,
		AmountPaid:       in.Amount,
		Currency:         in.Currency,
		Gateway:          in.Gateway,
		Status:           domain.SessionPendingPayment,
		PaymentStatus:    domain.PaymentPending,
		SettlementStatus: domain.SettlementPending,
		PlatformShare:    base.PlatformShare,
		HostShare:        base.HostShare,
	}
	if err := l.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	l.log.Info("session created", "session_id", s.ID, "host_id", s.HostID, "amount", s.AmountPaid, "gateway", s.Gateway)
	return s, nil
}

// CreateOrder creates a session and opens the matching gateway order. A gateway
// failure leaves the session in PENDING_PAYMENT without an order reference.
func (l *SessionLedger) CreateOrder(ctx context.Context, in CreateSessionInput) (*models.Session, error) {
	if in.Amount == 0 {
		price, ok := l.opts.Prices[in.Currency]
		if !ok {
			return nil, fmt.Errorf("%w: no price for currency %q", domain.ErrValidation, in.Currency)
		}
		in.Amount = price
	}
	gw, ok := l.gateways[in.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: gateway %q is not configured", domain.ErrValidation, in.Gateway)
	}
	s, err := l.CreateSession(ctx, in)
	if err != nil {
		return nil, err
	}
	order, err := gw.CreateOrder(ctx, payment.OrderRequest{
		Amount:   s.AmountPaid,
		Currency: s.Currency,
		Receipt:  "session_" + s.ID,
		Notes:    map[string]string{"session_id": s.ID},
	})
	if err != nil {
		l.log.Warn("gateway order failed", "session_id", s.ID, "gateway", s.Gateway, "error", err)
		return s, fmt.Errorf("%w: create order: %v", domain.ErrGateway, err)
	}
	if _, err := l.sessions.SetOrderRef(ctx, s.ID, order.OrderID); err != nil {
		return nil, err
	}
	ref := order.OrderID
	s.GatewayOrderRef = &ref
	return s, nil
}

// RecordCapture applies a verified payment-captured event. Replays return the
// session unchanged.
func (l *SessionLedger) RecordCapture(ctx context.Context, gateway, orderRef, captureRef string, meta map[string]interface{}) (*models.Session, error) {
	if !domain.ValidGateway(gateway) || orderRef == "" {
		return nil, fmt.Errorf("%w: gateway and order reference are required", domain.ErrValidation)
	}
	s, err := l.sessions.GetByOrderRef(ctx, gateway, orderRef)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.SessionPendingPayment {
		return s, nil
	}

	applied := false
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := l.sessions.WithTx(tx).MarkCaptured(ctx, s.ID, captureRef)
		if err != nil || !ok {
			return err
		}
		if err := l.wallets.WithTx(tx).CreditPendingEarnings(ctx, s.HostID, s.HostShare); err != nil {
			return err
		}
		sid := s.ID
		if err := l.txns.WithTx(tx).Create(ctx, &models.Transaction{
			UserID:      s.SeekerID,
			SessionID:   &sid,
			Type:        domain.TxCreditPurchase,
			Amount:      s.AmountPaid,
			Currency:    s.Currency,
			Gateway:     s.Gateway,
			ExternalRef: captureRef,
			Status:      domain.TxStatusCompleted,
			Description: "Session payment captured",
			Metadata:    datatypes.JSONMap(meta),
		}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if applied {
		l.wallets.Notify(s.HostID, "earning_pending")
		l.log.Info("payment captured", "session_id", s.ID, "capture_ref", captureRef, "host_share", s.HostShare)
	}
	return l.sessions.GetByID(ctx, s.ID)
}

// HoldInEscrow marks captured funds as held. Already held or released is a no-op.
func (l *SessionLedger) HoldInEscrow(ctx context.Context, sessionID string) error {
	s, err := l.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.PaymentStatus == domain.PaymentPending {
		return fmt.Errorf("%w: session %s has no captured payment", domain.ErrStateViolation, sessionID)
	}
	if domain.PaymentAtLeast(s.PaymentStatus, domain.PaymentHeldInEscrow) {
		return nil
	}
	_, err = l.sessions.MarkHeld(ctx, sessionID)
	return err
}

var errLostRace = errors.New("lost race")

// CompleteSession records the satisfaction score, applies the penalty to the
// host's pending earnings and writes the earning and fee records.
func (l *SessionLedger) CompleteSession(ctx context.Context, sessionID string, score int) (*Settlement, error) {
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: satisfaction score must be within 0..100", domain.ErrValidation)
	}
	s, err := l.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch s.Status {
	case domain.SessionCompleted:
		return nil, fmt.Errorf("%w: session %s", domain.ErrAlreadyCompleted, sessionID)
	case domain.SessionPendingPayment:
		return nil, fmt.Errorf("%w: session %s has not been paid", domain.ErrStateViolation, sessionID)
	}

	split := l.policy.Split(s.AmountPaid, score)
	endedAt := l.now().UTC()
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := l.sessions.WithTx(tx).MarkCompleted(ctx, s.ID, split, score, endedAt)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		txns := l.txns.WithTx(tx)
		sid := s.ID
		if split.PenaltyApplied > 0 {
			if err := l.wallets.WithTx(tx).DeductPendingEarnings(ctx, s.HostID, split.PenaltyApplied); err != nil {
				return err
			}
			if err := txns.Create(ctx, &models.Transaction{
				UserID:      s.HostID,
				SessionID:   &sid,
				Type:        domain.TxPenaltyDeduction,
				Amount:      split.PenaltyApplied,
				Currency:    s.Currency,
				Gateway:     s.Gateway,
				Status:      domain.TxStatusCompleted,
				Description: fmt.Sprintf("Satisfaction penalty (score %d)", score),
				Metadata:    datatypes.JSONMap{"satisfaction_score": score, "threshold": l.policy.Threshold},
			}); err != nil {
				return err
			}
		}
		if err := txns.Create(ctx, &models.Transaction{
			UserID:      s.HostID,
			SessionID:   &sid,
			Type:        domain.TxSessionEarning,
			Amount:      split.HostShare,
			Currency:    s.Currency,
			Gateway:     s.Gateway,
			Status:      domain.TxStatusCompleted,
			Description: "Host earning for session",
		}); err != nil {
			return err
		}
		return txns.Create(ctx, &models.Transaction{
			UserID:      s.SeekerID,
			SessionID:   &sid,
			Type:        domain.TxPlatformFee,
			Amount:      split.PlatformShare,
			Currency:    s.Currency,
			Gateway:     s.Gateway,
			Status:      domain.TxStatusCompleted,
			Description: "Platform fee for session",
		})
	})
	if errors.Is(err, errLostRace) {
		cur, gerr := l.sessions.GetByID(ctx, sessionID)
		if gerr == nil && cur.Status == domain.SessionCompleted {
			return nil, fmt.Errorf("%w: session %s", domain.ErrAlreadyCompleted, sessionID)
		}
		return nil, fmt.Errorf("%w: session %s changed concurrently", domain.ErrStateViolation, sessionID)
	}
	if err != nil {
		return nil, err
	}
	if split.PenaltyApplied > 0 {
		l.wallets.Notify(s.HostID, "penalty")
	}
	l.log.Info("session completed",
		"session_id", s.ID,
		"score", score,
		"host_share", split.HostShare,
		"penalty", split.PenaltyApplied,
	)
	return &Settlement{
		SessionID:         s.ID,
		PlatformShare:     split.PlatformShare,
		HostShare:         split.HostShare,
		PenaltyApplied:    split.PenaltyApplied,
		SatisfactionScore: score,
	}, nil
}

// FindSettlementEligible lists completed, unsettled sessions whose hold period has elapsed.
func (l *SessionLedger) FindSettlementEligible(ctx context.Context, hold time.Duration) ([]models.Session, error) {
	return l.sessions.FindSettlementEligible(ctx, l.now().UTC().Add(-hold), l.opts.BatchSize)
}
