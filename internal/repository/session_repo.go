package repository

import (
	"context"
	"time"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/models"
	"sessionescrow/pkg/penalty"

	"gorm.io/gorm"
)

// SessionRepository performs session reads and status-preconditioned transitions.
// Each transition returns false when its precondition no longer holds.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) WithTx(tx *gorm.DB) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error; err != nil {
		return nil, notFound(err, "session "+id)
	}
	return &s, nil
}

func (r *SessionRepository) GetByOrderRef(ctx context.Context, gateway, orderRef string) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).
		Where("gateway = ? AND gateway_order_ref = ?", gateway, orderRef).
		Take(&s).Error
	if err != nil {
		return nil, notFound(err, "session for order "+orderRef)
	}
	return &s, nil
}

// SetOrderRef attaches the gateway order to a session that has none yet.
func (r *SessionRepository) SetOrderRef(ctx context.Context, id, orderRef string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND gateway_order_ref IS NULL", id).
		Update("gateway_order_ref", orderRef)
	return res.RowsAffected == 1, res.Error
}

func (r *SessionRepository) MarkCaptured(ctx context.Context, id, captureRef string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, domain.SessionPendingPayment).
		Updates(map[string]interface{}{
			"status":              domain.SessionPaymentReceived,
			"payment_status":      domain.PaymentCaptured,
			"gateway_capture_ref": captureRef,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *SessionRepository) MarkHeld(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND payment_status = ?", id, domain.PaymentCaptured).
		Update("payment_status", domain.PaymentHeldInEscrow)
	return res.RowsAffected == 1, res.Error
}

func (r *SessionRepository) MarkCompleted(ctx context.Context, id string, split penalty.Split, score int, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, domain.SessionPaymentReceived).
		Updates(map[string]interface{}{
			"status":             domain.SessionCompleted,
			"platform_share":     split.PlatformShare,
			"host_share":         split.HostShare,
			"penalty_applied":    split.PenaltyApplied,
			"satisfaction_score": score,
			"ended_at":           endedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *SessionRepository) MarkSettled(ctx context.Context, id string, settledAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ? AND settlement_status = ?", id, domain.SessionCompleted, domain.SettlementPending).
		Updates(map[string]interface{}{
			"settlement_status": domain.SettlementCompleted,
			"payment_status":    domain.PaymentReleased,
			"settled_at":        settledAt,
		})
	return res.RowsAffected == 1, res.Error
}

// FindSettlementEligible lists completed, unsettled sessions that ended at or before cutoff, oldest first.
func (r *SessionRepository) FindSettlementEligible(ctx context.Context, cutoff time.Time, limit int) ([]models.Session, error) {
	var rows []models.Session
	err := r.db.WithContext(ctx).
		Where("status = ? AND settlement_status = ? AND ended_at <= ?", domain.SessionCompleted, domain.SettlementPending, cutoff).
		Order("ended_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
