package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraje-tours/reservas/backend/internal/middleware"
)

// TestAdminAuth_ValidToken_PassesThrough verifies that a request carrying the
// configured bearer token reaches the next handler.
func TestAdminAuth_ValidToken_PassesThrough(t *testing.T) {
	h := middleware.NewAdminAuth("secret-token")(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

// TestAdminAuth_WrongToken_Returns401 verifies that a wrong token is rejected.
func TestAdminAuth_WrongToken_Returns401(t *testing.T) {
	h := middleware.NewAdminAuth("secret-token")(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

// TestAdminAuth_MissingHeader_Returns401 verifies that a request without an
// Authorization header is rejected.
func TestAdminAuth_MissingHeader_Returns401(t *testing.T) {
	h := middleware.NewAdminAuth("secret-token")(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestAdminAuth_EmptyConfiguredToken_LocksSubtree verifies that an empty
// configured token rejects everything, valid-looking headers included.
func TestAdminAuth_EmptyConfiguredToken_LocksSubtree(t *testing.T) {
	h := middleware.NewAdminAuth("")(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/admin/reservations", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
