package database

import (
	"testing"

	"sessionescrow/config"
	"sessionescrow/internal/models"

	"github.com/stretchr/testify/require"
)

func TestNewDBSqliteMigrates(t *testing.T) {
	db, err := NewDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:database_migrate?mode=memory&cache=shared",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, m := range []interface{}{&models.Session{}, &models.Wallet{}, &models.Transaction{}, &models.Payout{}} {
		require.True(t, db.Migrator().HasTable(m))
	}
	require.True(t, db.Migrator().HasIndex(&models.Session{}, "idx_sessions_settlement"))
}

func TestNewDBUnknownDriver(t *testing.T) {
	_, err := NewDB(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
