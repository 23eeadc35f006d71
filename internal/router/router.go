package router

import (
	"log/slog"
	"net/http"

	"sessionescrow/config"
	"sessionescrow/internal/domain"
	"sessionescrow/internal/handler"
	"sessionescrow/internal/middleware"
	"sessionescrow/internal/service"
	"sessionescrow/internal/ws"
	"sessionescrow/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Services *service.Container
	Verifier *payment.WebhookVerifier
	Hub      *ws.Hub
	Limiter  *middleware.IPRateLimiter
	Logger   *slog.Logger
}

func Setup(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())

	webhookHandler := handler.NewWebhookHandler(d.Verifier, d.Services.Sessions, d.Services.Payouts, d.Logger)
	sessionHandler := handler.NewSessionHandler(d.Services.Sessions, cfg.Escrow.DefaultCurrency)
	walletHandler := handler.NewWalletHandler(d.Services.Wallets)
	payoutHandler := handler.NewPayoutHandler(d.Services.Payouts)
	adminHandler := handler.NewAdminHandler(d.Services.Settlement, d.Services.Payouts, d.Services.Wallets)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws/wallet", ws.UpgradeWalletWS(&cfg.JWT, d.Hub, d.Logger))

	api := r.Group("/api/v1")
	{
		webhooks := api.Group("/webhooks")
		webhooks.POST("/razorpay", webhookHandler.Razorpay)
		webhooks.POST("/paypal", webhookHandler.PayPal)

		// client routes only; webhooks are never rate limited
		authed := api.Group("")
		if d.Limiter != nil {
			authed.Use(middleware.RateLimit(d.Limiter))
		}
		authed.Use(middleware.AuthRequired(&cfg.JWT))
		authed.POST("/orders", middleware.RequireRole(domain.RoleSeeker), sessionHandler.CreateOrder)
		authed.GET("/sessions/:id", sessionHandler.GetSession)
		authed.POST("/sessions/:id/complete", middleware.RequireRole(domain.RoleSeeker, domain.RoleAdmin), sessionHandler.CompleteSession)

		me := authed.Group("/me")
		me.Use(middleware.RequireRole(domain.RoleHost))
		me.GET("/wallet", walletHandler.GetWallet)
		me.GET("/wallet/transactions", walletHandler.ListTransactions)
		me.PUT("/wallet/destination", walletHandler.LinkDestination)
		me.POST("/payouts", payoutHandler.RequestPayout)
		me.GET("/payouts", payoutHandler.ListPayouts)

		admin := authed.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin))
		admin.POST("/settlements/run", adminHandler.RunSettlements)
		admin.POST("/settlements/:session_id", adminHandler.SettleSession)
		admin.GET("/payouts/reconciliation", adminHandler.ListReconciliation)
		admin.POST("/wallets/:host_id/verify", adminHandler.VerifyDestination)
	}
	return r
}
