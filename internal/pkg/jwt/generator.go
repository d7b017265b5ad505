// internal/pkg/jwt/generator.go
package jwt

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	priv     *rsa.PrivateKey
	issuer   string
	audience string
	kid      string // key id for rotation
	ttl      time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience, kid string, ttl time.Duration) *Generator {
	return &Generator{
		priv:     priv,
		issuer:   issuer,
		audience: audience,
		kid:      kid,
		ttl:      ttl,
	}
}

// IssuedToken is a signed token and the identifiers its session is stored
// under.
type IssuedToken struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// GenerateAccessToken signs an RS256 access token for an account
func (g *Generator) GenerateAccessToken(accountID, email string, now time.Time) (*IssuedToken, error) {
	if g.priv == nil {
		return nil, fmt.Errorf("jwt generator has nil private key")
	}
	if accountID == "" {
		return nil, fmt.Errorf("cannot issue a token without an account")
	}

	jti := ulid.Make().String()
	expiresAt := now.Add(g.ttl)

	claims := &Claims{
		AccountID: accountID,
		Email:     email,
		Purpose:   PurposeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   accountID,
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if g.kid != "" {
		tok.Header["kid"] = g.kid
	}

	signed, err := tok.SignedString(g.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{Token: signed, JTI: jti, IssuedAt: now, ExpiresAt: expiresAt}, nil
}
