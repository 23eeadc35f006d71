package repository

import (
	"context"
	"time"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/models"

	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) WithTx(tx *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: tx}
}

func (r *PayoutRepository) Create(ctx context.Context, p *models.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PayoutRepository) GetByExternalID(ctx context.Context, method, externalID string) (*models.Payout, error) {
	var p models.Payout
	err := r.db.WithContext(ctx).
		Where("method = ? AND external_payout_id = ?", method, externalID).
		Take(&p).Error
	if err != nil {
		return nil, notFound(err, "payout "+externalID)
	}
	return &p, nil
}

func (r *PayoutRepository) GetByReference(ctx context.Context, ref string) (*models.Payout, error) {
	var p models.Payout
	if err := r.db.WithContext(ctx).Where("reference = ?", ref).Take(&p).Error; err != nil {
		return nil, notFound(err, "payout "+ref)
	}
	return &p, nil
}

// FlagReconciliation marks a payout for manual review without touching its status.
func (r *PayoutRepository) FlagReconciliation(ctx context.Context, id uint, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"needs_reconciliation": true,
			"failure_reason":       reason,
		})
	return res.RowsAffected == 1, res.Error
}

// Finalize moves a PROCESSING payout to its terminal status.
func (r *PayoutRepository) Finalize(ctx context.Context, id uint, status string, needsReconciliation bool, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, domain.PayoutProcessing).
		Updates(map[string]interface{}{
			"status":               status,
			"needs_reconciliation": needsReconciliation,
			"failure_reason":       reason,
			"completed_at":         at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *PayoutRepository) ListNeedsReconciliation(ctx context.Context, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("needs_reconciliation = ?", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *PayoutRepository) ListByHost(ctx context.Context, hostID uint, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
