package models

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction is the write-once audit record of a single money movement.
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	SessionID   *string           `gorm:"size:36;index" json:"session_id,omitempty"`
	WalletID    *uint             `gorm:"index" json:"wallet_id,omitempty"`
	Type        string            `gorm:"size:30;not null;index" json:"type"`
	Amount      int64             `gorm:"not null" json:"amount"`
	Currency    string            `gorm:"size:3;not null" json:"currency"`
	Gateway     string            `gorm:"size:16" json:"gateway"`
	ExternalRef string            `gorm:"size:128" json:"external_ref,omitempty"`
	Status      string            `gorm:"size:20;not null" json:"status"`
	Description string            `gorm:"size:255" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
