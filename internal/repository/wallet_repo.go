package repository

import (
	"context"
	"strconv"

	"sessionescrow/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository applies balance deltas as single conditional statements.
// Mutators report whether a row was changed; false means the precondition failed.
type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByHostID(ctx context.Context, hostID uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Where("host_id = ?", hostID).Take(&w).Error; err != nil {
		return nil, notFound(err, "wallet for host "+strconv.FormatUint(uint64(hostID), 10))
	}
	return &w, nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var w models.Wallet
	if err := r.db.WithContext(ctx).Take(&w, id).Error; err != nil {
		return nil, notFound(err, "wallet "+strconv.FormatUint(uint64(id), 10))
	}
	return &w, nil
}

// AddPending credits pending earnings and total earned of an existing wallet.
func (r *WalletRepository) AddPending(ctx context.Context, hostID uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("host_id = ?", hostID).
		Updates(map[string]interface{}{
			"pending_earnings": gorm.Expr("pending_earnings + ?", amount),
			"total_earned":     gorm.Expr("total_earned + ?", amount),
		})
	return res.RowsAffected == 1, res.Error
}

// Insert creates w unless a wallet for the host already exists.
func (r *WalletRepository) Insert(ctx context.Context, w *models.Wallet) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "host_id"}}, DoNothing: true}).
		Create(w)
	return res.RowsAffected == 1, res.Error
}

// DeductPending removes a penalty from pending earnings and total earned.
func (r *WalletRepository) DeductPending(ctx context.Context, hostID uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("host_id = ? AND pending_earnings >= ?", hostID, amount).
		Updates(map[string]interface{}{
			"pending_earnings": gorm.Expr("pending_earnings - ?", amount),
			"total_earned":     gorm.Expr("total_earned - ?", amount),
		})
	return res.RowsAffected == 1, res.Error
}

// Release moves amount from pending earnings to the withdrawal balance.
func (r *WalletRepository) Release(ctx context.Context, hostID uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("host_id = ? AND pending_earnings >= ?", hostID, amount).
		Updates(map[string]interface{}{
			"pending_earnings":   gorm.Expr("pending_earnings - ?", amount),
			"withdrawal_balance": gorm.Expr("withdrawal_balance + ?", amount),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *WalletRepository) DebitWithdrawable(ctx context.Context, walletID uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND withdrawal_balance >= ?", walletID, amount).
		Updates(map[string]interface{}{
			"withdrawal_balance": gorm.Expr("withdrawal_balance - ?", amount),
			"total_withdrawn":    gorm.Expr("total_withdrawn + ?", amount),
		})
	return res.RowsAffected == 1, res.Error
}

// UpdateDestination writes payout destination columns only, never balances.
func (r *WalletRepository) UpdateDestination(ctx context.Context, hostID uint, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("host_id = ?", hostID).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}
