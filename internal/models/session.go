package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is one paid interaction between a seeker and a host. Rows are never deleted.
type Session struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	SeekerID          uint       `gorm:"not null;index" json:"seeker_id"`
	HostID            uint       `gorm:"not null;index" json:"host_id"`
	SessionType       string     `gorm:"size:32;not null" json:"session_type"`
	AmountPaid        int64      `gorm:"not null" json:"amount_paid"`
	Currency          string     `gorm:"size:3;not null" json:"currency"`
	Gateway           string     `gorm:"size:16;not null" json:"gateway"`
	GatewayOrderRef   *string    `gorm:"size:128;uniqueIndex" json:"gateway_order_ref,omitempty"`
	GatewayCaptureRef string     `gorm:"size:128" json:"gateway_capture_ref,omitempty"`
	Status            string     `gorm:"size:20;not null;index:idx_sessions_settlement,priority:1" json:"status"`
	PaymentStatus     string     `gorm:"size:20;not null" json:"payment_status"`
	SettlementStatus  string     `gorm:"size:20;not null;index:idx_sessions_settlement,priority:2" json:"settlement_status"`
	PlatformShare     int64      `gorm:"not null;default:0" json:"platform_share"`
	HostShare         int64      `gorm:"not null;default:0" json:"host_share"`
	PenaltyApplied    int64      `gorm:"not null;default:0" json:"penalty_applied"`
	SatisfactionScore *int       `json:"satisfaction_score,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	EndedAt           *time.Time `gorm:"index:idx_sessions_settlement,priority:3" json:"ended_at,omitempty"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
