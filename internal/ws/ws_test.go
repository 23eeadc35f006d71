package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sessionescrow/config"
	"sessionescrow/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToHost(t *testing.T) {
	hub := NewHub()
	a, b := NewClient(1), NewClient(2)
	hub.Register(a)
	hub.Register(b)

	hub.WalletChanged(1, "payout")
	var ev WalletEvent
	require.NoError(t, json.Unmarshal(<-a.Send, &ev))
	require.Equal(t, "wallet.updated", ev.Type)
	require.Equal(t, "payout", ev.Reason)
	require.Empty(t, b.Send)

	a.Close()
	a.Close()
	require.Equal(t, 1, hub.ClientCount())
	hub.WalletChanged(1, "after close")
}

func TestUpgradeWalletWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute, Issuer: "test"}
	hub := NewHub()
	r := gin.New()
	r.GET("/ws/wallet", UpgradeWalletWS(cfg, hub, slog.Default()))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/wallet"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, 5, "HOST")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.WalletChanged(5, "escrow_released")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), "escrow_released")
}
