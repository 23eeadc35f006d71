package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"sessionescrow/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// statusFor maps domain error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrStateViolation),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var kindMessages = map[string]string{
	"authentication":          "unauthorized",
	"not_found":               "not found",
	"already_completed":       "session already completed",
	"state_violation":         "operation not allowed in the current state",
	"insufficient_funds":      "insufficient funds",
	"gateway":                 "payment gateway error",
	"reconciliation_required": "payout sent but not recorded; flagged for reconciliation",
}

// publicMessage is the text a caller may see. Only validation errors carry their
// own detail; everything else gets a fixed message per kind.
func publicMessage(err error) string {
	kind := domain.Kind(err)
	if kind == "validation" {
		return err.Error()
	}
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return "internal error"
}

// respondError writes the error response. Identifiers in the error text stay in the logs.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"success": false, "error": publicMessage(err), "kind": domain.Kind(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "kind": "validation"})
}

var registerOnce sync.Once

// RegisterValidators adds the gateway and payout_method binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		isGateway := func(fl validator.FieldLevel) bool {
			return domain.ValidGateway(fl.Field().String())
		}
		_ = v.RegisterValidation("gateway", isGateway)
		_ = v.RegisterValidation("payout_method", isGateway)
		_ = v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
			return domain.ValidSessionType(fl.Field().String())
		})
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
