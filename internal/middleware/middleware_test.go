package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *jwt.Claims
	err    error
}

func (s stubValidator) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	return s.claims, s.err
}

func newRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.NewNop()), LoggingMiddleware(zap.NewNop()))
	r.GET("/me", NewAuthMiddleware(v, zap.NewNop()).Auth(), func(c *gin.Context) {
		accountID, err := GetAccountID(c)
		if err != nil {
			c.Status(http.StatusForbidden)
			return
		}
		c.String(http.StatusOK, accountID)
	})
	r.GET("/open", func(c *gin.Context) {
		if _, err := GetAccountID(c); xerrors.Is(err, xerrors.ErrForbidden) {
			c.Status(http.StatusNoContent)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestAuthSetsAccount(t *testing.T) {
	r := newRouter(stubValidator{claims: &jwt.Claims{AccountID: "acc-1"}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1", w.Body.String())
}

func TestAuthRejects(t *testing.T) {
	tests := []struct {
		name   string
		v      stubValidator
		header string
	}{
		{"no token", stubValidator{claims: &jwt.Claims{AccountID: "acc-1"}}, ""},
		{"expired session", stubValidator{err: xerrors.ErrSessionExpired}, "Bearer stale"},
		{"empty account", stubValidator{claims: &jwt.Claims{}}, "Bearer odd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.v)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestGetAccountIDWithoutAuth(t *testing.T) {
	r := newRouter(stubValidator{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	r := newRouter(stubValidator{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSetAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.NoError(t, SetAccount(c, "acc-7", "jti-1"))
	accountID, err := GetAccountID(c)
	assert.NoError(t, err)
	assert.Equal(t, "acc-7", accountID)
	assert.Equal(t, "jti-1", MustGetJTI(c))

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Error(t, SetAccount(c2, "", ""))
	assert.False(t, IsAuthenticated(c2))
}
