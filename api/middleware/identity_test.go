package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/fabricspeaks/fabricspeaks-backend/pkg/auth"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/config"
	"github.com/fabricspeaks/fabricspeaks-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "identity-test-secret", Issuer: "fabricspeaks", ExpirationMinutes: 15}
}

func guestIdentity(sessionID string) pkgauth.Identity {
	return pkgauth.Identity{SessionID: &sessionID, Role: enums.ActorRoleGuest}
}

func identityProbe(got *pkgauth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFromContext(r.Context())
	})
}

func TestIdentityResolvesBearerToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.ActorRoleCustomer,
	})
	require.NoError(t, err)

	var got pkgauth.Identity
	handler := Identity(cfg, testLogger())(identityProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.UserID)
	assert.Equal(t, userID, *got.UserID)
	assert.Equal(t, enums.ActorRoleCustomer, got.Role)
}

func TestIdentityRejectsInvalidToken(t *testing.T) {
	var got pkgauth.Identity
	handler := Identity(testJWTConfig(), testLogger())(identityProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	assert.False(t, got.HasActor())
}

func TestIdentityHonorsGuestSessionHeader(t *testing.T) {
	var got pkgauth.Identity
	handler := Identity(testJWTConfig(), testLogger())(identityProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Guest-Session", "guest-xyz")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.SessionID)
	assert.Equal(t, "guest-xyz", *got.SessionID)
	assert.Equal(t, enums.ActorRoleGuest, got.Role)
	assert.False(t, got.IsAuthenticated())
}

func TestIdentityRejectsOversizedGuestSession(t *testing.T) {
	var got pkgauth.Identity
	handler := Identity(testJWTConfig(), testLogger())(identityProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Guest-Session", strings.Repeat("x", maxSessionIDLen+1))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentityPassesAnonymousThrough(t *testing.T) {
	var got pkgauth.Identity
	handler := Identity(testJWTConfig(), testLogger())(identityProbe(&got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, got.HasActor())
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("rejects guests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
		req = req.WithContext(WithIdentity(req.Context(), guestIdentity("guest-1")))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admits admins", func(t *testing.T) {
		adminID := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
		req = req.WithContext(WithIdentity(req.Context(), pkgauth.Identity{
			UserID: &adminID,
			Role:   enums.ActorRoleAdmin,
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
