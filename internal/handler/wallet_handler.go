package handler

import (
	"errors"
	"net/http"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/middleware"
	"sessionescrow/internal/models"
	"sessionescrow/internal/service"

	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	wallets *service.WalletLedger
}

func NewWalletHandler(wallets *service.WalletLedger) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

// GetWallet returns the calling host's balances. A host without earnings sees zeros.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	hostID := middleware.GetUserID(c)
	w, err := h.wallets.Get(c.Request.Context(), hostID)
	if errors.Is(err, domain.ErrNotFound) {
		w, err = &models.Wallet{HostID: hostID}, nil
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": w})
}

func (h *WalletHandler) ListTransactions(c *gin.Context) {
	txns, err := h.wallets.ListTransactions(c.Request.Context(), middleware.GetUserID(c), queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txns})
}

type destinationRequest struct {
	Method  string `json:"method" binding:"required,payout_method"`
	Account string `json:"account" binding:"required,max=255"`
}

// LinkDestination sets the RazorpayX fund account or PayPal email payouts go to.
func (h *WalletHandler) LinkDestination(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	w, err := h.wallets.LinkDestination(c.Request.Context(), middleware.GetUserID(c), req.Method, req.Account)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": w})
}
