package domain

import "errors"

var (
	ErrValidation             = errors.New("validation error")
	ErrAuthentication         = errors.New("authentication error")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyCompleted       = errors.New("already completed")
	ErrStateViolation         = errors.New("state violation")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrGateway                = errors.New("gateway error")
	ErrInvariantViolation     = errors.New("invariant violation")
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// Kind returns the stable error kind used in API responses and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, ErrStateViolation):
		return "state_violation"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrGateway):
		return "gateway"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrReconciliationRequired):
		return "reconciliation_required"
	default:
		return "internal"
	}
}
