package handler

import (
	"net/http"

	"sessionescrow/internal/middleware"
	"sessionescrow/internal/service"

	"github.com/gin-gonic/gin"
)

type PayoutHandler struct {
	payouts *service.PayoutRequestor
}

func NewPayoutHandler(payouts *service.PayoutRequestor) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

type payoutRequest struct {
	Amount   int64  `json:"amount" binding:"required"`
	Method   string `json:"method" binding:"required,payout_method"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
}

func (h *PayoutHandler) RequestPayout(c *gin.Context) {
	var req payoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.payouts.RequestPayout(c.Request.Context(), middleware.GetUserID(c), req.Amount, req.Method, req.Currency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "payout": p})
}

func (h *PayoutHandler) ListPayouts(c *gin.Context) {
	list, err := h.payouts.ListForHost(c.Request.Context(), middleware.GetUserID(c), queryInt(c, "limit", 20))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payouts": list})
}
