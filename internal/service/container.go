package service

import (
	"fmt"
	"log/slog"

	"sessionescrow/config"
	"sessionescrow/pkg/penalty"

	"gorm.io/gorm"
)

// Container holds the wired escrow components shared by the HTTP server and the CLI.
type Container struct {
	Wallets    *WalletLedger
	Sessions   *SessionLedger
	Settlement *SettlementScheduler
	Payouts    *PayoutRequestor
}

type Deps struct {
	DB       *gorm.DB
	Gateways Gateways
	Guard    PayoutGuard
	Notifier WalletNotifier
	Logger   *slog.Logger
}

// PolicyFromConfig translates the escrow section into a penalty policy.
func PolicyFromConfig(e config.EscrowConfig) penalty.Policy {
	return penalty.Policy{
		PlatformSharePercent: e.PlatformSharePercent,
		HostSharePercent:     e.HostSharePercent,
		Threshold:            e.SatisfactionThreshold,
		Mode:                 e.PenaltyMode,
		StepPoints:           e.PenaltyStepPoints,
		PerStepAmount:        e.PenaltyPerStep,
		Multiplier:           e.PenaltyMultiplier,
	}
}

func NewContainer(cfg *config.Config, d Deps) (*Container, error) {
	policy := PolicyFromConfig(cfg.Escrow)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("escrow policy: %w", err)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	wallets := NewWalletLedger(d.DB, d.Notifier, logger)
	sessions := NewSessionLedger(d.DB, wallets, d.Gateways, policy, SessionLedgerOptions{
		Prices:    cfg.Escrow.SessionPrices,
		BatchSize: cfg.Escrow.SettlementBatchSize,
	}, logger)
	return &Container{
		Wallets:    wallets,
		Sessions:   sessions,
		Settlement: NewSettlementScheduler(d.DB, sessions, wallets, cfg.Escrow.HoldDuration(), cfg.Escrow.SettlementConcurrency, logger),
		Payouts: NewPayoutRequestor(d.DB, wallets, d.Gateways, d.Guard, PayoutOptions{
			MinWithdrawal:   cfg.Escrow.MinWithdrawal,
			DefaultCurrency: cfg.Escrow.DefaultCurrency,
			Note:            cfg.Payout.Note,
		}, logger),
	}, nil
}
