package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sessionescrow/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrValidation:             http.StatusBadRequest,
		domain.ErrStateViolation:         http.StatusBadRequest,
		domain.ErrInsufficientFunds:      http.StatusBadRequest,
		domain.ErrAuthentication:         http.StatusUnauthorized,
		domain.ErrNotFound:               http.StatusNotFound,
		domain.ErrAlreadyCompleted:       http.StatusConflict,
		domain.ErrGateway:                http.StatusBadGateway,
		domain.ErrReconciliationRequired: http.StatusInternalServerError,
		fmt.Errorf("disk on fire"):       http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, statusFor(fmt.Errorf("%w: wrapped", err)), err.Error())
	}
}

func TestRespondErrorHidesIdentifiers(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: wallet 1 withdrawal balance below 5000", domain.ErrInsufficientFunds), "insufficient funds"},
		{fmt.Errorf("%w: session 6f1c2a9e-0000-4000-8000-000000000000", domain.ErrNotFound), "not found"},
		{fmt.Errorf("%w: session 6f1c2a9e-0000-4000-8000-000000000000 has not been paid", domain.ErrStateViolation), "operation not allowed in the current state"},
		{fmt.Errorf("%w: create payout: dial tcp 10.0.0.7:443", domain.ErrGateway), "payment gateway error"},
		{fmt.Errorf("db password rejected"), "internal error"},
		{fmt.Errorf("%w: minimum withdrawal is 1000", domain.ErrValidation), "validation error: minimum withdrawal is 1000"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, tc.want, body["error"])
		require.Equal(t, domain.Kind(tc.err), body["kind"])
		require.Equal(t, false, body["success"])
		require.Equal(t, statusFor(tc.err), w.Code)
	}
}
