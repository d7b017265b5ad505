// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/identity"
	"pillflow-service/internal/pkg/jwt"
	"pillflow-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxAccountID = "account_id"
	ctxJTI       = "jti"
	ctxEmail     = "email"
	ctxIdentity  = "identity"
)

// TokenValidator verifies a bearer token and its server-side session.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// Auth walks the request's identity session from anonymous to
// authenticated and aborts with 401 otherwise.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := identity.NewSession()
		c.Set(ctxIdentity, sess)

		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		if err := sess.Begin(); err != nil {
			response.Error(c, http.StatusInternalServerError, "authentication failed", nil)
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			_ = sess.Fail(err)
			m.logger.Debug("token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", xerrors.ErrUnauthorized)
			return
		}

		_ = sess.Succeed(claims.AccountID)
		if sess.State() != identity.StateAuthenticated {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", xerrors.ErrUnauthorized)
			return
		}

		c.Set(ctxAccountID, claims.AccountID)
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxEmail, claims.Email)

		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// SetAccount binds an already verified account to the request, for routes
// authenticated outside the bearer flow.
func SetAccount(c *gin.Context, accountID, jti string) error {
	sess := identity.NewSession()
	if err := sess.Begin(); err != nil {
		return err
	}
	if err := sess.Succeed(accountID); err != nil {
		return err
	}
	if _, err := sess.AccountID(); err != nil {
		return err
	}

	c.Set(ctxIdentity, sess)
	c.Set(ctxAccountID, accountID)
	c.Set(ctxJTI, jti)
	return nil
}

// GetAccountID returns the authenticated account. It fails unless the
// request's identity session reached the authenticated state.
func GetAccountID(c *gin.Context) (string, error) {
	v, exists := c.Get(ctxIdentity)
	if !exists {
		return "", xerrors.NewAuthorizationError("", "unauthenticated request")
	}
	sess, ok := v.(*identity.Session)
	if !ok {
		return "", xerrors.NewAuthorizationError("", "unauthenticated request")
	}
	return sess.AccountID()
}

// GetJTI returns the token id of the current session
func GetJTI(c *gin.Context) (string, bool) {
	jti, exists := c.Get(ctxJTI)
	if !exists {
		return "", false
	}

	jtiStr, ok := jti.(string)
	return jtiStr, ok
}
