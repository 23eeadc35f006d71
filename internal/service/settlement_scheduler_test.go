package service

import (
	"context"
	"testing"
	"time"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/models"
	"sessionescrow/internal/repository"

	"github.com/stretchr/testify/require"
)

func completedSession(t *testing.T, f *fixture, amount int64, score int) string {
	t.Helper()
	id := f.paidSession(t, amount)
	_, err := f.sessions.CompleteSession(context.Background(), id, score)
	require.NoError(t, err)
	return id
}

func TestRunBatchReleasesAfterHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := completedSession(t, f, 10000, 70)

	results, err := f.settlement.RunBatch(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Empty(t, results)

	f.advance(25 * time.Hour)
	results, err = f.settlement.RunBatch(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, []SettlementResult{{SessionID: id, HostID: 2, Amount: 4400, Status: SettlementSettled}}, results)

	w, err := f.wallets.Get(ctx, 2)
	require.NoError(t, err)
	require.Zero(t, w.PendingEarnings)
	require.Equal(t, int64(4400), w.WithdrawalBalance)

	s, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.SettlementCompleted, s.SettlementStatus)
	require.Equal(t, domain.PaymentReleased, s.PaymentStatus)
	require.NotNil(t, s.SettledAt)

	// a second run finds nothing
	results, err = f.settlement.RunBatch(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSettleTwiceReleasesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := completedSession(t, f, 1000, 95)
	f.advance(25 * time.Hour)

	s, err := f.sessions.Get(ctx, id)
	require.NoError(t, err)
	first := f.settlement.settle(ctx, *s)
	second := f.settlement.settle(ctx, *s)
	require.Equal(t, SettlementSettled, first.Status)
	require.Equal(t, SettlementAlreadySettled, second.Status)

	w, err := f.wallets.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(500), w.WithdrawalBalance)

	txns, err := repository.NewTransactionRepository(f.db).ListBySession(ctx, id)
	require.NoError(t, err)
	var releases int
	for _, tx := range txns {
		if tx.Type == domain.TxEscrowRelease {
			releases++
		}
	}
	require.Equal(t, 1, releases)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := completedSession(t, f, 1000, 95)

	bad := f.paidSession(t, 1000)
	_, err := f.sessions.CompleteSession(ctx, bad, 95)
	require.NoError(t, err)
	// the second session's host share is no longer covered by pending earnings
	require.NoError(t, f.db.Model(&models.Session{}).Where("id = ?", bad).Update("host_id", 77).Error)

	f.advance(25 * time.Hour)
	results, err := f.settlement.RunBatch(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]SettlementResult{}
	for _, r := range results {
		byID[r.SessionID] = r
	}
	require.Equal(t, SettlementSettled, byID[good].Status)
	require.Equal(t, SettlementFailed, byID[bad].Status)
	require.Contains(t, byID[bad].Error, "insufficient_funds")

	s, err := f.sessions.Get(ctx, bad)
	require.NoError(t, err)
	require.Equal(t, domain.SettlementPending, s.SettlementStatus)
}

func TestSettleOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.settlement.SettleOne(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	paid := f.paidSession(t, 1000)
	_, err = f.settlement.SettleOne(ctx, paid)
	require.ErrorIs(t, err, domain.ErrStateViolation)

	id := completedSession(t, f, 2000, 95)
	_, err = f.settlement.SettleOne(ctx, id)
	require.ErrorIs(t, err, domain.ErrStateViolation, "hold not elapsed")

	f.advance(24 * time.Hour)
	res, err := f.settlement.SettleOne(ctx, id)
	require.NoError(t, err)
	require.Equal(t, SettlementSettled, res.Status)
	require.Equal(t, int64(1000), res.Amount)

	res, err = f.settlement.SettleOne(ctx, id)
	require.NoError(t, err)
	require.Equal(t, SettlementAlreadySettled, res.Status)
}
