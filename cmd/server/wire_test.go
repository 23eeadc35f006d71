package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"sessionescrow/config"
	"sessionescrow/internal/database"
	"sessionescrow/internal/domain"
	"sessionescrow/pkg/payment"

	"github.com/stretchr/testify/require"
)

func TestBuildGatewaysFallsBackToStubOutsideProduction(t *testing.T) {
	cfg := config.Default()
	gw := buildGateways(cfg, slog.Default())
	require.IsType(t, &payment.StubGateway{}, gw[domain.GatewayRazorpay])
	require.IsType(t, &payment.StubGateway{}, gw[domain.GatewayPayPal])

	cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret = "rzp_test", "secret"
	gw = buildGateways(cfg, slog.Default())
	require.IsType(t, &payment.RazorpayClient{}, gw[domain.GatewayRazorpay])
}

func TestBuildGatewaysProductionNeedsCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Env = "production"
	gw := buildGateways(cfg, slog.Default())
	require.Empty(t, gw)
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"
	logger := newLogger(cfg)
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func writeConfig(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "escrow.yaml")
	body := "database:\n  driver: sqlite\n  dsn: \"file:" + name + "?mode=memory&cache=shared\"\n  max_open_conns: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSettleCommandOnEmptyDatabase(t *testing.T) {
	configPath = writeConfig(t, "cmd_settle")
	t.Cleanup(func() { configPath = "" })

	// keep the shared in-memory database alive across the command's own connections
	keep, err := database.NewDB(&config.DatabaseConfig{Driver: "sqlite", DSN: "file:cmd_settle?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, err := keep.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	t.Cleanup(func() { _ = sqlDB.Close() })

	migrateCmd.SetContext(context.Background())
	require.NoError(t, runMigrate(migrateCmd, nil))

	var out bytes.Buffer
	settleCmd.SetOut(&out)
	settleCmd.SetContext(context.Background())
	require.NoError(t, runSettle(settleCmd, nil))

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Empty(t, results)
}
