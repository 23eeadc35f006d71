package auth

import (
	"testing"
	"time"

	"sessionescrow/config"

	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s3cret", AccessExpiry: time.Minute, Issuer: "sessionescrow"}
	tok, err := GenerateAccessToken(cfg, 42, "HOST")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "HOST", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "s3cret", AccessExpiry: time.Minute, Issuer: "sessionescrow"}

	other := *cfg
	other.AccessSecret = "different"
	tok, err := GenerateAccessToken(&other, 42, "HOST")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	tok, err = GenerateAccessToken(&expired, 42, "HOST")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	foreign := *cfg
	foreign.Issuer = "someone-else"
	tok, err = GenerateAccessToken(&foreign, 42, "HOST")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
