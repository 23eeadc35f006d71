package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindFollowsWrapping(t *testing.T) {
	err := fmt.Errorf("%w: amount must be positive", ErrValidation)
	require.Equal(t, "validation", Kind(err))
	require.Equal(t, "not_found", Kind(fmt.Errorf("load wallet: %w", ErrNotFound)))
	require.Equal(t, "internal", Kind(errors.New("boom")))
	require.Equal(t, "none", Kind(nil))
}

func TestLifecycleOrdering(t *testing.T) {
	require.True(t, SessionAtLeast(SessionCompleted, SessionPaymentReceived))
	require.False(t, SessionAtLeast(SessionPendingPayment, SessionPaymentReceived))
	require.True(t, PaymentAtLeast(PaymentReleased, PaymentHeldInEscrow))
	require.False(t, PaymentAtLeast(PaymentCaptured, PaymentHeldInEscrow))
}
