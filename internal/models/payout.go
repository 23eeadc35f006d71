package models

import "time"

type Payout struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	WalletID            uint       `gorm:"not null;index" json:"wallet_id"`
	HostID              uint       `gorm:"not null;index" json:"host_id"`
	Reference           string     `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	Amount              int64      `gorm:"not null" json:"amount"`
	Currency            string     `gorm:"size:3;not null" json:"currency"`
	Method              string     `gorm:"size:16;not null" json:"method"`
	ExternalPayoutID    string     `gorm:"size:128;index" json:"external_payout_id"`
	Status              string     `gorm:"size:20;not null;index" json:"status"` // PROCESSING, COMPLETED, FAILED
	NeedsReconciliation bool       `gorm:"not null;default:false;index" json:"needs_reconciliation"`
	FailureReason       string     `gorm:"size:255" json:"failure_reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

func (Payout) TableName() string {
	return "payouts"
}
