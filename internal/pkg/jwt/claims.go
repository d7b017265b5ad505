// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const PurposeAccess = "access"

// Claims carries the account a token was issued to. The subject is the
// account id as well; the registered jti names the server-side session.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

// SessionID is the token id, which doubles as the session key.
func (c *Claims) SessionID() string {
	return c.ID
}

func (c *Claims) scopedToAccount() bool {
	return c.AccountID != "" && c.AccountID == c.Subject
}
