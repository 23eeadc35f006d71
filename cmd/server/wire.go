package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"sessionescrow/config"
	"sessionescrow/internal/cache"
	"sessionescrow/internal/database"
	"sessionescrow/internal/domain"
	"sessionescrow/internal/middleware"
	"sessionescrow/internal/service"
	"sessionescrow/internal/ws"
	"sessionescrow/pkg/payment"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *gorm.DB
	redis    *redis.Client
	hub      *ws.Hub
	limiter  *middleware.IPRateLimiter
	verifier *payment.WebhookVerifier
	services *service.Container
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Server.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// newApp loads config and wires storage, gateways and services. The redis
// payout guard is only connected for the server.
func newApp(ctx context.Context, path string, serving bool) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a := &app{cfg: cfg, log: logger, db: db, hub: ws.NewHub()}

	var guard service.PayoutGuard
	guardCfg := cache.GuardConfig{LockTTL: cfg.Payout.LockTTL, MaxAttempts: cfg.Payout.MaxAttempts, Window: cfg.Payout.Window}
	if serving && cfg.Redis.URL != "" {
		client, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = client
		guard = cache.NewRedisPayoutGuard(client, guardCfg)
	} else {
		guard = cache.NewMemoryPayoutGuard(guardCfg)
	}

	gateways := buildGateways(cfg, logger)
	a.verifier = payment.NewWebhookVerifier(cfg.Razorpay.WebhookSecret, payment.NewPayPalCertVerifier(payment.PayPalCertOptions{
		WebhookID:  cfg.PayPal.WebhookID,
		CommonName: cfg.PayPal.CertCommonName,
		CacheTTL:   cfg.PayPal.CertCacheTTL,
	}), logger)
	a.limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	a.services, err = service.NewContainer(cfg, service.Deps{
		DB:       db,
		Gateways: gateways,
		Guard:    guard,
		Notifier: a.hub,
		Logger:   logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildGateways uses the real REST clients when credentials are configured and
// the stub gateway otherwise, outside production.
func buildGateways(cfg *config.Config, logger *slog.Logger) service.Gateways {
	gateways := service.Gateways{}
	prod := strings.EqualFold(cfg.Server.Env, "production")
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		gateways[domain.GatewayRazorpay] = payment.NewRazorpayClient(payment.RazorpayOptions{
			BaseURL:       cfg.Razorpay.BaseURL,
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			AccountNumber: cfg.Razorpay.AccountNumber,
			PayoutMode:    cfg.Razorpay.PayoutMode,
		})
	} else if !prod {
		logger.Warn("razorpay credentials missing, using stub gateway")
		gateways[domain.GatewayRazorpay] = &payment.StubGateway{}
	}
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		gateways[domain.GatewayPayPal] = payment.NewPayPalClient(payment.PayPalOptions{
			BaseURL:      cfg.PayPal.BaseURL,
			ClientID:     cfg.PayPal.ClientID,
			ClientSecret: cfg.PayPal.ClientSecret,
		})
	} else if !prod {
		logger.Warn("paypal credentials missing, using stub gateway")
		gateways[domain.GatewayPayPal] = &payment.StubGateway{}
	}
	return gateways
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
