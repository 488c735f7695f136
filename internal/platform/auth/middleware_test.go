package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return tok
}

func newTestRouter(captured *Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireAuth(testSecret))
	r.GET("/whoami", func(c *gin.Context) {
		*captured = CallerFrom(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	t.Run("accepts valid token and exposes caller", func(t *testing.T) {
		var caller Caller
		r := newTestRouter(&caller)

		tok := signToken(t, jwt.MapClaims{
			"sub":         "staff-01",
			"role":        RoleAdmin,
			"location_id": 7,
			"exp":         time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staff-01", caller.UserID)
		assert.Equal(t, RoleAdmin, caller.Role)
		require.NotNil(t, caller.LocationID)
		assert.Equal(t, int64(7), *caller.LocationID)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		var caller Caller
		r := newTestRouter(&caller)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		var caller Caller
		r := newTestRouter(&caller)

		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("other"))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCaller_ScopeLocation(t *testing.T) {
	own := int64(3)
	requested := int64(9)

	super := Caller{Role: RoleSuperAdmin, LocationID: &own}
	assert.Equal(t, &requested, super.ScopeLocation(&requested))
	assert.Nil(t, super.ScopeLocation(nil))

	admin := Caller{Role: RoleAdmin, LocationID: &own}
	assert.Equal(t, int64(3), *admin.ScopeLocation(&requested))
	assert.Equal(t, int64(3), *admin.ScopeLocation(nil))

	unassigned := Caller{Role: RoleUser}
	assert.Nil(t, unassigned.ScopeLocation(&requested))
}
