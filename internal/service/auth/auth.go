// internal/service/auth/auth.go
package auth

import (
	"context"
	"fmt"
	"strings"

	"pillflow-service/internal/domain/account"
	"pillflow-service/internal/pkg/clock"
	xerrors "pillflow-service/internal/pkg/errors"
	"pillflow-service/internal/pkg/jwt"
	"pillflow-service/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AccountStore interface {
	Create(ctx context.Context, a *account.Account) error
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	FindByID(ctx context.Context, id string) (*account.Account, error)
}

type AuthService struct {
	accountRepo    AccountStore
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	clock          clock.Clock
	logger         *zap.Logger
}

func NewAuthService(
	accountRepo AccountStore,
	jwtManager *jwt.Manager,
	sessionManager *session.Manager,
	rateLimiter *session.RateLimiter,
	clk clock.Clock,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accountRepo:    accountRepo,
		jwtManager:     jwtManager,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		clock:          clk,
		logger:         logger,
	}
}

// ========== Registration ==========

// Register creates a new account and signs it in
func (s *AuthService) Register(ctx context.Context, req *account.RegisterRequest, ipAddress, userAgent string) (*account.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, xerrors.NewValidationError("email", "is required")
	}
	if len(req.Password) < 8 {
		return nil, xerrors.NewValidationError("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := &account.Account{
		ID:           ulid.Make().String(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		Status:       account.StatusActive,
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, xerrors.ErrDuplicateEntry
		}
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("account_id", acc.ID),
		zap.String("email", acc.Email),
	)

	return s.issue(ctx, acc, ipAddress, userAgent)
}

// ========== Login ==========

// Login checks credentials and opens a new session
func (s *AuthService) Login(ctx context.Context, req *account.LoginRequest) (*account.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, email)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return nil, xerrors.ErrRateLimited
	}

	acc, err := s.accountRepo.FindByEmail(ctx, email)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", req.IPAddress),
			zap.Int64("remaining", remaining),
		)
		return nil, xerrors.ErrUnauthorized
	}

	if acc.Status != account.StatusActive {
		return nil, xerrors.NewAuthorizationError(acc.ID, "inactive account")
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, email); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	return s.issue(ctx, acc, req.IPAddress, req.UserAgent)
}

// ========== Logout ==========

// Logout invalidates the current session
func (s *AuthService) Logout(ctx context.Context, accountID, jti string) error {
	if err := s.sessionManager.InvalidateSession(ctx, accountID, jti); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	s.logger.Info("session closed", zap.String("account_id", accountID), zap.String("jti", jti))
	return nil
}

// LogoutAllSessions invalidates every session of the account
func (s *AuthService) LogoutAllSessions(ctx context.Context, accountID string) error {
	if err := s.sessionManager.InvalidateAllSessions(ctx, accountID); err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	return nil
}

// ValidateToken verifies an access token and checks that its session is
// still open.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, err.Error())
	}

	sess, err := s.sessionManager.GetSession(ctx, claims.AccountID, claims.ID)
	if err != nil {
		return nil, err
	}
	if sess.AccountID != claims.AccountID {
		return nil, xerrors.ErrSessionExpired
	}

	return claims, nil
}

// GetAccount returns the signed-in account
func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*account.Account, error) {
	return s.accountRepo.FindByID(ctx, accountID)
}

// ========== Helper Methods ==========

func (s *AuthService) issue(ctx context.Context, acc *account.Account, ipAddress, userAgent string) (*account.LoginResponse, error) {
	now := s.clock.Now()

	issued, err := s.jwtManager.Generator.GenerateAccessToken(acc.ID, acc.Email, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	sessionData := &session.SessionData{
		JTI:            issued.JTI,
		AccountID:      acc.ID,
		Email:          acc.Email,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      issued.ExpiresAt,
	}

	if err := s.sessionManager.CreateSession(ctx, sessionData); err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	return &account.LoginResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt,
		Account:     acc,
	}, nil
}
