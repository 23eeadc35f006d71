package handler

import (
	"net/http"
	"strconv"

	"sessionescrow/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the operator surface: settlement runs, reconciliation and destination checks.
type AdminHandler struct {
	scheduler *service.SettlementScheduler
	payouts   *service.PayoutRequestor
	wallets   *service.WalletLedger
}

func NewAdminHandler(scheduler *service.SettlementScheduler, payouts *service.PayoutRequestor, wallets *service.WalletLedger) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, payouts: payouts, wallets: wallets}
}

func (h *AdminHandler) RunSettlements(c *gin.Context) {
	results, err := h.scheduler.RunBatch(c.Request.Context(), h.scheduler.Hold())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(results), "results": results})
}

func (h *AdminHandler) SettleSession(c *gin.Context) {
	res, err := h.scheduler.SettleOne(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

func (h *AdminHandler) ListReconciliation(c *gin.Context) {
	list, err := h.payouts.ListReconciliation(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payouts": list})
}

func (h *AdminHandler) VerifyDestination(c *gin.Context) {
	hostID, err := strconv.ParseUint(c.Param("host_id"), 10, 64)
	if err != nil || hostID == 0 {
		badRequest(c, "invalid host id")
		return
	}
	w, err := h.wallets.VerifyDestination(c.Request.Context(), uint(hostID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "wallet": w})
}
