package models

import "time"

// Wallet holds a host's earnings. Balances only move through atomic delta updates.
type Wallet struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	HostID            uint      `gorm:"uniqueIndex;not null" json:"host_id"`
	PendingEarnings   int64     `gorm:"not null;default:0" json:"pending_earnings"`
	WithdrawalBalance int64     `gorm:"not null;default:0" json:"withdrawal_balance"`
	TotalEarned       int64     `gorm:"not null;default:0" json:"total_earned"`
	TotalWithdrawn    int64     `gorm:"not null;default:0" json:"total_withdrawn"`
	RazorpayAccountID string    `gorm:"size:64" json:"razorpay_account_id,omitempty"`
	PayPalEmail       string    `gorm:"column:paypal_email;size:255" json:"paypal_email,omitempty"`
	PayPalVerified    bool      `gorm:"column:paypal_verified;not null;default:false" json:"paypal_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
