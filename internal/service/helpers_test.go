package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sessionescrow/config"
	"sessionescrow/internal/database"
	"sessionescrow/internal/domain"
	"sessionescrow/pkg/payment"
	"sessionescrow/pkg/penalty"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fakeGateway struct {
	mu        sync.Mutex
	orderErr  error
	payoutErr error
	orders    []payment.OrderRequest
	payouts   []payment.PayoutRequest
	seq       int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	g.seq++
	g.orders = append(g.orders, req)
	return &payment.OrderResponse{OrderID: fmt.Sprintf("order_%d", g.seq), Status: "created"}, nil
}

func (g *fakeGateway) CreatePayout(ctx context.Context, req payment.PayoutRequest) (*payment.PayoutResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.payoutErr != nil {
		return nil, g.payoutErr
	}
	g.seq++
	g.payouts = append(g.payouts, req)
	return &payment.PayoutResponse{PayoutID: fmt.Sprintf("pout_%d", g.seq), Status: "processing"}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) WalletChanged(hostID uint, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf("%d:%s", hostID, reason))
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	db         *gorm.DB
	gw         *fakeGateway
	notifier   *recordingNotifier
	wallets    *WalletLedger
	sessions   *SessionLedger
	settlement *SettlementScheduler
	payouts    *PayoutRequestor
	clock      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	gw := &fakeGateway{}
	gateways := Gateways{domain.GatewayRazorpay: gw, domain.GatewayPayPal: gw}
	notifier := &recordingNotifier{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	wallets := NewWalletLedger(db, notifier, nil)
	sessions := NewSessionLedger(db, wallets, gateways, penalty.Default(), SessionLedgerOptions{
		Prices: map[string]int64{"INR": 50000},
	}, nil)
	sessions.now = clock
	settlement := NewSettlementScheduler(db, sessions, wallets, 24*time.Hour, 1, nil)
	settlement.now = clock
	payouts := NewPayoutRequestor(db, wallets, gateways, nil, PayoutOptions{
		MinWithdrawal:   map[string]int64{"INR": 1000, "USD": 500},
		DefaultCurrency: "INR",
	}, nil)
	payouts.now = clock
	return &fixture{
		db: db, gw: gw, notifier: notifier, wallets: wallets, sessions: sessions,
		settlement: settlement, payouts: payouts, clock: &now,
	}
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func sessionInput(amount int64) CreateSessionInput {
	return CreateSessionInput{
		SeekerID:    1,
		HostID:      2,
		SessionType: domain.SessionTypeVideoCall,
		Amount:      amount,
		Currency:    "INR",
		Gateway:     domain.GatewayRazorpay,
	}
}

// paidSession creates an order and applies its capture.
func (f *fixture) paidSession(t *testing.T, amount int64) string {
	t.Helper()
	ctx := context.Background()
	s, err := f.sessions.CreateOrder(ctx, sessionInput(amount))
	require.NoError(t, err)
	_, err = f.sessions.RecordCapture(ctx, domain.GatewayRazorpay, *s.GatewayOrderRef, "pay_"+s.ID[:8], nil)
	require.NoError(t, err)
	require.NoError(t, f.sessions.HoldInEscrow(ctx, s.ID))
	return s.ID
}

var errBoom = errors.New("boom")
