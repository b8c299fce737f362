package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaker() *MakerImpl {
	return NewJWTMaker("access-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)
}

func TestGenerateTokenPair_AndParse(t *testing.T) {
	maker := newTestMaker()

	pair, err := maker.GenerateTokenPair("uid-1", "user@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := maker.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)

	refreshClaims, err := maker.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", refreshClaims.Subject)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	maker := newTestMaker()
	other := NewJWTMaker("another-secret", "refresh-secret", 15*time.Minute, 168*time.Hour)

	pair, err := maker.GenerateTokenPair("uid-1", "user@example.com", "user")
	require.NoError(t, err)

	_, err = other.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestParseAccessToken_Expired(t *testing.T) {
	maker := NewJWTMaker("access-secret", "refresh-secret", -time.Minute, 168*time.Hour)

	pair, err := maker.GenerateTokenPair("uid-1", "user@example.com", "user")
	require.NoError(t, err)

	_, err = maker.ParseAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestParseRefreshToken_RejectsAccessToken(t *testing.T) {
	// Access-токен не проходит как refresh: другой секрет подписи.
	maker := newTestMaker()

	pair, err := maker.GenerateTokenPair("uid-1", "user@example.com", "user")
	require.NoError(t, err)

	_, err = maker.ParseRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	maker := newTestMaker()
	_, err := maker.ParseAccessToken("not.a.token")
	assert.Error(t, err)
}
