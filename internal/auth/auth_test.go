package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestToken_RoundTrip(t *testing.T) {
	tok, err := GenerateToken(secret, "warden", time.Now())
	require.NoError(t, err)

	claims, err := ValidateToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "warden", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestToken_Rejected(t *testing.T) {
	tok, err := GenerateToken(secret, "warden", time.Now())
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", tok)
	assert.Error(t, err)

	expired, err := GenerateToken(secret, "warden", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(secret, unsigned)
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPassword("s3cret", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.True(t, CheckPassword("plain", "plain"))
	assert.False(t, CheckPassword("plain", "plainer"))
	assert.False(t, CheckPassword("", ""))
}

func TestMiddleware(t *testing.T) {
	var seen *Claims
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings.json", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/bookings.json", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := GenerateToken(secret, "warden", time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/bookings.json", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "warden", seen.Subject)
}
