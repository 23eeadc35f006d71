// Package penalty splits a paid amount between platform and host, docking the
// host share when the seeker's satisfaction score falls below a threshold.
// All amounts are integer minor currency units.
package penalty

import (
	"errors"
	"fmt"
)

const (
	ModeStep    = "step"
	ModePercent = "percent"
)

// Policy describes the split and penalty rules.
type Policy struct {
	PlatformSharePercent int64
	HostSharePercent     int64
	Threshold            int
	Mode                 string
	// Step mode: PerStepAmount is taken for every full StepPoints below Threshold.
	StepPoints    int
	PerStepAmount int64
	// Percent mode: each point below Threshold removes Multiplier percent of the base host share.
	Multiplier int64
}

// Split is the outcome of a settlement computation.
type Split struct {
	PlatformShare  int64 `json:"platform_share"`
	HostShare      int64 `json:"host_share"`
	PenaltyApplied int64 `json:"penalty_applied"`
}

// Default is the 50/50 split with a 300-unit penalty per 10 points below 90.
func Default() Policy {
	return Policy{
		PlatformSharePercent: 50,
		HostSharePercent:     50,
		Threshold:            90,
		Mode:                 ModeStep,
		StepPoints:           10,
		PerStepAmount:        300,
		Multiplier:           1,
	}
}

func (p Policy) Validate() error {
	if p.PlatformSharePercent < 0 || p.HostSharePercent < 0 || p.PlatformSharePercent+p.HostSharePercent != 100 {
		return errors.New("penalty: share percentages must be non-negative and sum to 100")
	}
	if p.Threshold < 0 || p.Threshold > 100 {
		return errors.New("penalty: threshold must be within 0..100")
	}
	switch p.Mode {
	case ModeStep:
		if p.StepPoints <= 0 || p.PerStepAmount < 0 {
			return errors.New("penalty: step mode needs a positive step size and a non-negative step amount")
		}
	case ModePercent:
		if p.Multiplier < 0 {
			return errors.New("penalty: multiplier must not be negative")
		}
	default:
		return fmt.Errorf("penalty: unknown mode %q", p.Mode)
	}
	return nil
}

// BaseSplit is the split before any penalty. The rounding remainder goes to the platform.
func (p Policy) BaseSplit(amount int64) Split {
	if amount <= 0 {
		return Split{}
	}
	host := amount * p.HostSharePercent / 100
	return Split{PlatformShare: amount - host, HostShare: host}
}

// Split computes the final shares for amount given a satisfaction score in 0..100.
// PlatformShare + HostShare always equals amount.
func (p Policy) Split(amount int64, score int) Split {
	base := p.BaseSplit(amount)
	if amount <= 0 || score >= p.Threshold {
		return base
	}
	drop := int64(p.Threshold - score)

	var penalty int64
	switch p.Mode {
	case ModePercent:
		pct := drop * p.Multiplier
		if pct > 100 {
			pct = 100
		}
		// half-up
		penalty = (base.HostShare*pct + 50) / 100
	default:
		steps := drop / int64(p.StepPoints)
		penalty = steps * p.PerStepAmount
	}
	if penalty < 0 {
		penalty = 0
	}
	if penalty > base.HostShare {
		penalty = base.HostShare
	}
	host := base.HostShare - penalty
	return Split{
		PlatformShare:  amount - host,
		HostShare:      host,
		PenaltyApplied: penalty,
	}
}
