package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough"

func newTestTokenManager() *TokenManager {
	return NewTokenManager(testSecret, 15*time.Minute, 30*24*time.Hour, 10*time.Minute)
}

func okHandler(t *testing.T, sawClaims **models.TokenClaims) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*sawClaims = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidAccessToken(t *testing.T) {
	tm := newTestTokenManager()
	token, err := tm.GenerateAccessToken("user123", "a@x.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := newTestTokenManager()
	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, claims)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := newTestTokenManager()
	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	for _, header := range []string{"Basic abc", "Bearer", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q should be rejected", header)
	}
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	tm := newTestTokenManager()
	refresh, err := tm.GenerateRefreshToken("user123", "a@x.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, claims)
}

func TestAuthMiddleware_RejectsResetToken(t *testing.T) {
	tm := newTestTokenManager()
	reset, err := tm.GenerateResetToken("user123", "a@x.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
	req.Header.Set("Authorization", "Bearer "+reset)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_TamperedToken(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("a-completely-different-secret-value", 15*time.Minute, 30*24*time.Hour, 10*time.Minute)
	token, err := other.GenerateAccessToken("user123", "a@x.com")
	require.NoError(t, err)

	var claims *models.TokenClaims
	handler := AuthMiddleware(tm)(okHandler(t, &claims))

	req := httptest.NewRequest(http.MethodGet, "/get-history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	tm := NewTokenManager(testSecret, -1*time.Minute, 30*24*time.Hour, 10*time.Minute)
	token, err := tm.GenerateAccessToken("user123", "a@x.com")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}
