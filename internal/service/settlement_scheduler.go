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

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	SettlementSettled        = "settled"
	SettlementAlreadySettled = "already_settled"
	SettlementFailed         = "failed"
)

type SettlementResult struct {
	SessionID string `json:"session_id"`
	HostID    uint   `json:"host_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SettlementScheduler releases escrowed host shares once the hold period has
// passed. It holds no timers; callers trigger batches.
type SettlementScheduler struct {
	db          *gorm.DB
	sessions    *repository.SessionRepository
	ledger      *SessionLedger
	wallets     *WalletLedger
	hold        time.Duration
	concurrency int
	now         func() time.Time
	log         *slog.Logger
}

func NewSettlementScheduler(db *gorm.DB, ledger *SessionLedger, wallets *WalletLedger, hold time.Duration, concurrency int, logger *slog.Logger) *SettlementScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SettlementScheduler{
		db:          db,
		sessions:    repository.NewSessionRepository(db),
		ledger:      ledger,
		wallets:     wallets,
		hold:        hold,
		concurrency: concurrency,
		now:         time.Now,
		log:         logger.With("component", "settlement"),
	}
}

func (s *SettlementScheduler) Hold() time.Duration {
	return s.hold
}

// RunBatch settles every eligible session independently. One failure never
// aborts the rest; the error return is reserved for the eligibility query.
func (s *SettlementScheduler) RunBatch(ctx context.Context, hold time.Duration) ([]SettlementResult, error) {
	started := time.Now()
	defer func() { metrics.SettlementBatchDuration.Observe(time.Since(started).Seconds()) }()

	due, err := s.ledger.FindSettlementEligible(ctx, hold)
	if err != nil {
		return nil, err
	}
	results := make([]SettlementResult, len(due))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range due {
		sess := due[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = failedResult(sess, err)
				return nil
			}
			results[i] = s.settle(ctx, sess)
			return nil
		})
	}
	_ = g.Wait()

	var settled, failed int
	for _, r := range results {
		switch r.Status {
		case SettlementSettled:
			settled++
		case SettlementFailed:
			failed++
		}
	}
	s.log.Info("settlement batch finished", "eligible", len(due), "settled", settled, "failed", failed)
	return results, nil
}

// SettleOne settles a single session on demand, refusing it while the hold period is running.
func (s *SettlementScheduler) SettleOne(ctx context.Context, sessionID string) (SettlementResult, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return SettlementResult{}, err
	}
	if sess.Status != domain.SessionCompleted {
		return SettlementResult{}, fmt.Errorf("%w: session %s is not completed", domain.ErrStateViolation, sessionID)
	}
	if sess.SettlementStatus == domain.SettlementCompleted {
		return resultFor(*sess, SettlementAlreadySettled), nil
	}
	if sess.EndedAt == nil || s.now().UTC().Before(sess.EndedAt.Add(s.hold)) {
		return SettlementResult{}, fmt.Errorf("%w: hold period for session %s has not elapsed", domain.ErrStateViolation, sessionID)
	}
	res := s.settle(ctx, *sess)
	if res.Status == SettlementFailed {
		return res, fmt.Errorf("settle session %s: %s", sessionID, res.Error)
	}
	return res, nil
}

func (s *SettlementScheduler) settle(ctx context.Context, sess models.Session) SettlementResult {
	won := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.sessions.WithTx(tx).MarkSettled(ctx, sess.ID, s.now().UTC())
		if err != nil || !ok {
			return err
		}
		if err := s.wallets.WithTx(tx).ReleaseToWithdrawable(ctx, sess.HostID, sess.HostShare, sess.ID, sess.Currency); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		s.log.Error("settlement failed", "session_id", sess.ID, "host_id", sess.HostID, "error", err)
		metrics.SettlementsTotal.WithLabelValues(SettlementFailed).Inc()
		return failedResult(sess, err)
	}
	if !won {
		metrics.SettlementsTotal.WithLabelValues(SettlementAlreadySettled).Inc()
		return resultFor(sess, SettlementAlreadySettled)
	}
	s.wallets.Notify(sess.HostID, "escrow_released")
	metrics.SettlementsTotal.WithLabelValues(SettlementSettled).Inc()
	s.log.Info("session settled", "session_id", sess.ID, "host_id", sess.HostID, "amount", sess.HostShare)
	return resultFor(sess, SettlementSettled)
}

func resultFor(sess models.Session, status string) SettlementResult {
	return SettlementResult{SessionID: sess.ID, HostID: sess.HostID, Amount: sess.HostShare, Status: status}
}

func failedResult(sess models.Session, err error) SettlementResult {
	r := resultFor(sess, SettlementFailed)
	r.Error = domain.Kind(err) + ": " + err.Error()
	return r
}
