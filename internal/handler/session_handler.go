package handler

import (
	"net/http"

	"sessionescrow/internal/domain"
	"sessionescrow/internal/middleware"
	"sessionescrow/internal/models"
	"sessionescrow/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions        *service.SessionLedger
	defaultCurrency string
}

func NewSessionHandler(sessions *service.SessionLedger, defaultCurrency string) *SessionHandler {
	return &SessionHandler{sessions: sessions, defaultCurrency: defaultCurrency}
}

type createOrderRequest struct {
	HostID      uint   `json:"host_id" binding:"required"`
	SessionType string `json:"session_type" binding:"required,session_type"`
	Gateway     string `json:"gateway" binding:"required,gateway"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

// CreateOrder opens a session for the calling seeker and a gateway order for it.
// The price always comes from the server's price table.
func (h *SessionHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = h.defaultCurrency
	}
	s, err := h.sessions.CreateOrder(c.Request.Context(), service.CreateSessionInput{
		SeekerID:    middleware.GetUserID(c),
		HostID:      req.HostID,
		SessionType: req.SessionType,
		Currency:    req.Currency,
		Gateway:     req.Gateway,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	resp := sessionView(s)
	resp["success"] = true
	c.JSON(http.StatusCreated, resp)
}

// GetSession returns a session to its seeker, its host or an admin.
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := h.loadVisible(c)
	if !ok {
		return
	}
	resp := sessionView(s)
	resp["success"] = true
	c.JSON(http.StatusOK, resp)
}

type completeRequest struct {
	SatisfactionScore *int `json:"satisfaction_score" binding:"required"`
}

// CompleteSession ends a paid session with the seeker's satisfaction score.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	s, ok := h.loadVisible(c)
	if !ok {
		return
	}
	if middleware.GetRole(c) != domain.RoleAdmin && s.SeekerID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only the seeker can complete a session"})
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.sessions.CompleteSession(c.Request.Context(), s.ID, *req.SatisfactionScore)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settlement": st})
}

// loadVisible hides sessions the caller is not part of behind a 404.
func (h *SessionHandler) loadVisible(c *gin.Context) (*models.Session, bool) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	uid := middleware.GetUserID(c)
	if middleware.GetRole(c) != domain.RoleAdmin && s.SeekerID != uid && s.HostID != uid {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "session not found", "kind": "not_found"})
		return nil, false
	}
	return s, true
}

func sessionView(s *models.Session) gin.H {
	h := gin.H{"session": s}
	if s.GatewayOrderRef != nil {
		h["order_id"] = *s.GatewayOrderRef
	}
	return h
}
