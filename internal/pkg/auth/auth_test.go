package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "Storefront"},
		JWT:      config.JWTConfig{Secret: "test-secret-that-is-at-least-32-characters"},
		Session:  config.SessionConfig{TTL: time.Hour},
		Security: config.SecurityConfig{BcryptCost: 4},
	}
}

func TestSessionToken_RoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, issued, err := manager.GenerateSessionToken(7, "alice", "alice@example.com", true)
	require.NoError(t, err)
	require.NotEmpty(t, issued.SessionID())

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, issued.SessionID(), claims.SessionID())
}

func TestSessionToken_EachLoginGetsNewSessionID(t *testing.T) {
	manager := NewJWTManager(testConfig())

	_, first, err := manager.GenerateSessionToken(1, "bob", "bob@example.com", false)
	require.NoError(t, err)
	_, second, err := manager.GenerateSessionToken(1, "bob", "bob@example.com", false)
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID(), second.SessionID())
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := NewJWTManager(testConfig()).GenerateSessionToken(1, "bob", "bob@example.com", false)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "another-secret-that-is-at-least-32-chars!"

	_, err = NewJWTManager(other).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := testConfig()
	claims := &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired",
			Issuer:    cfg.App.Name,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	_, err = NewJWTManager(cfg).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestPasswordManager(t *testing.T) {
	manager := NewPasswordManager(testConfig())

	hash, err := manager.HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NoError(t, manager.VerifyPassword("s3cret!", hash))
	assert.Error(t, manager.VerifyPassword("wrong", hash))

	_, err = manager.HashPassword("123")
	assert.Error(t, err)
}
