// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"pillflow-service/internal/domain/account"
	"pillflow-service/internal/middleware"
	"pillflow-service/internal/pkg/response"
	authUsecase "pillflow-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionBroadcaster tells live connections that their session ended.
type SessionBroadcaster interface {
	ForceLogout(accountID, sessionID, reason string)
}

type AuthHandler struct {
	authService *authUsecase.AuthService
	broadcaster SessionBroadcaster
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, broadcaster SessionBroadcaster, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register creates a pharmacy account (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req account.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	loginResp, err := h.authService.Register(c.Request.Context(), &req, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.FromError(c, "registration failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", loginResp)
}

// ========== Login ==========

// Login handles account login
func (h *AuthHandler) Login(c *gin.Context) {
	var req account.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "login failed", err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Session ==========

// Logout closes the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}
	jti := middleware.MustGetJTI(c)

	if err := h.authService.Logout(c.Request.Context(), accountID, jti); err != nil {
		h.logger.Error("logout failed", zap.String("account_id", accountID), zap.Error(err))
		response.FromError(c, "logout failed", err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.ForceLogout(accountID, jti, "logged out")
	}

	h.logger.Info("account logged out",
		zap.String("account_id", accountID),
		zap.String("email", middleware.GetEmail(c)),
	)

	response.Success(c, http.StatusOK, "logged out successfully", nil)
}

// LogoutAll closes every session of the account
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	if err := h.authService.LogoutAllSessions(c.Request.Context(), accountID); err != nil {
		response.FromError(c, "logout failed", err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.ForceLogout(accountID, "", "all sessions logged out")
	}

	response.Success(c, http.StatusOK, "all sessions logged out", nil)
}

// GetMe returns the signed-in account
func (h *AuthHandler) GetMe(c *gin.Context) {
	accountID, err := middleware.GetAccountID(c)
	if err != nil {
		response.FromError(c, "not authenticated", err)
		return
	}

	acc, err := h.authService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		response.FromError(c, "failed to load account", err)
		return
	}

	response.Success(c, http.StatusOK, "account retrieved", acc)
}
