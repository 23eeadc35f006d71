package penalty

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitNoPenaltyAtOrAboveThreshold(t *testing.T) {
	p := Default()
	for _, score := range []int{90, 95, 100} {
		s := p.Split(1000, score)
		require.Zero(t, s.PenaltyApplied)
		require.Equal(t, int64(500), s.HostShare)
		require.Equal(t, int64(1000), s.PlatformShare+s.HostShare)
	}
}

func TestSplitPenaltyCappedAtHostShare(t *testing.T) {
	s := Default().Split(1000, 60)
	require.Equal(t, Split{PlatformShare: 1000, HostShare: 0, PenaltyApplied: 500}, s)
}

func TestSplitPartialStepIsFree(t *testing.T) {
	s := Default().Split(1000, 85)
	require.Equal(t, Split{PlatformShare: 500, HostShare: 500, PenaltyApplied: 0}, s)
}

func TestSplitStepPenalty(t *testing.T) {
	// 20 points below threshold: two steps of 300
	s := Default().Split(10000, 70)
	require.Equal(t, int64(600), s.PenaltyApplied)
	require.Equal(t, int64(4400), s.HostShare)
	require.Equal(t, int64(5600), s.PlatformShare)
}

func TestSplitZeroAmount(t *testing.T) {
	require.Equal(t, Split{}, Default().Split(0, 10))
}

func TestSplitOddAmountRemainderGoesToPlatform(t *testing.T) {
	s := Default().Split(1001, 95)
	require.Equal(t, int64(500), s.HostShare)
	require.Equal(t, int64(501), s.PlatformShare)
}

func TestSplitPercentMode(t *testing.T) {
	p := Default()
	p.Mode = ModePercent
	p.Multiplier = 2

	// 5 points below 90 at 2% per point = 10% of 500
	s := p.Split(1000, 85)
	require.Equal(t, int64(50), s.PenaltyApplied)
	require.Equal(t, int64(450), s.HostShare)
	require.Equal(t, int64(550), s.PlatformShare)

	// 90 points below: clamped to the whole host share
	s = p.Split(1000, 0)
	require.Equal(t, int64(500), s.PenaltyApplied)
	require.Zero(t, s.HostShare)
}

func TestSplitPercentModeRoundsHalfUp(t *testing.T) {
	p := Default()
	p.Mode = ModePercent
	p.Multiplier = 1
	// base host 333, 5% = 16.65 -> 17
	s := p.Split(667, 85)
	require.Equal(t, int64(17), s.PenaltyApplied)
	require.Equal(t, int64(667), s.PlatformShare+s.HostShare)
}

func TestSplitConservesAmount(t *testing.T) {
	for _, mode := range []string{ModeStep, ModePercent} {
		p := Default()
		p.Mode = mode
		for amount := int64(0); amount < 2000; amount += 37 {
			for score := 0; score <= 100; score += 7 {
				s := p.Split(amount, score)
				require.Equal(t, amount, s.PlatformShare+s.HostShare)
				require.GreaterOrEqual(t, s.HostShare, int64(0))
				require.GreaterOrEqual(t, s.PenaltyApplied, int64(0))
				require.Equal(t, p.BaseSplit(amount).HostShare-s.HostShare, s.PenaltyApplied)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	p := Default()
	p.HostSharePercent = 70
	require.Error(t, p.Validate())

	p = Default()
	p.Mode = "sliding"
	require.Error(t, p.Validate())

	p = Default()
	p.StepPoints = 0
	require.Error(t, p.Validate())
}
