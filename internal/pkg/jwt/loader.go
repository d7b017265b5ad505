// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"
)

type Config struct {
	PrivPath string
	PubPath  string
	Issuer   string
	Audience string
	TTL      time.Duration
	KID      string
}

// Manager pairs the signing and verifying halves of one key.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// NewManager builds both halves from a private key. pub may be nil, in which
// case the private key's public half is used.
func NewManager(priv *rsa.PrivateKey, pub *rsa.PublicKey, cfg Config) (*Manager, error) {
	if priv == nil {
		return nil, errors.New("jwt: private key is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("jwt: issuer and audience are required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("jwt: token ttl must be positive, got %s", cfg.TTL)
	}
	if pub == nil {
		pub = &priv.PublicKey
	} else if !priv.PublicKey.Equal(pub) {
		return nil, errors.New("jwt: public key does not match private key")
	}

	return &Manager{
		Generator: NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.KID, cfg.TTL),
		Verifier:  NewVerifier(pub, cfg.Issuer, cfg.Audience),
	}, nil
}

// LoadAndBuild reads the PEM files named in cfg. PubPath is optional.
func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	var pub *rsa.PublicKey
	if cfg.PubPath != "" {
		if pub, err = LoadRSAPublicKeyFromPEM(cfg.PubPath); err != nil {
			return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
		}
	}

	return NewManager(priv, pub, cfg)
}
