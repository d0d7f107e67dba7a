package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/dto"
	"github.com/wegift/auth-service/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  service.AuthService
	resetService service.PasswordResetService
	cookies      *CookieWriter
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, resetService service.PasswordResetService, cookies *CookieWriter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resetService: resetService,
		cookies:      cookies,
		logger:       logger,
	}
}

// Register handles credential registration
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 201 {object} dto.RegisterResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	credential, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		AcceptedTerms: req.AcceptedTerms,
		BirthDate:     req.BirthDate,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{UserID: credential.ID})
}

// Activate handles the link from the activation email
// @Summary Activate an account
// @Tags auth
// @Produce json
// @Param token query string true "Activation token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/activate [get]
func (h *AuthHandler) Activate(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		writeError(c, h.logger, domain.NewValidationError("activation token is required"))
		return
	}

	if err := h.authService.Activate(c.Request.Context(), token); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "account activated"})
}

// ResendActivation sends a new activation email
// @Summary Resend the activation email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/activate/resend [post]
func (h *AuthHandler) ResendActivation(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	h.authService.ResendActivation(c.Request.Context(), req.Email)

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "if the account exists and is not active, an activation email has been sent"})
}

// Login handles credential login
// @Summary Log in
// @Description Sets the accessToken, refreshToken and sid cookies
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		Remember:  req.Remember,
		UserAgent: c.Request.UserAgent(),
		SourceIP:  c.ClientIP(),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.cookies.SetSession(c, tokens)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "logged in"})
}

// Refresh rotates the refresh secret and issues a new access token
// @Summary Refresh tokens
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sessionID, _ := c.Cookie(SessionIDCookie)
	refreshToken, _ := c.Cookie(RefreshTokenCookie)

	tokens, err := h.authService.Refresh(c.Request.Context(), sessionID, refreshToken)
	if err != nil {
		if domain.IsKind(err, domain.KindAuth) {
			h.cookies.ClearSession(c)
		}
		writeError(c, h.logger, err)
		return
	}

	h.cookies.SetSession(c, tokens)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "tokens refreshed"})
}

// Logout revokes the current session
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(SessionIDCookie)
	if sessionID == "" {
		// Bearer clients do not hold the sid cookie
		if claims, err := h.authService.EnsureAuthenticated(c.Request.Context(), accessTokenFrom(c)); err == nil {
			sessionID = claims.SessionID
		}
	}

	// The client is logged out either way, a stale session row only lingers until expiry
	if err := h.authService.Logout(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("failed to revoke session on logout", zap.String("session_id", sessionID), zap.Error(err))
	}

	h.cookies.ClearSession(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "logged out"})
}

// ForgotPassword starts the password reset flow
// @Summary Request a password reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	h.resetService.RequestReset(c.Request.Context(), req.Email)

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "if the account exists, a password reset email has been sent"})
}

// ResetPassword redeems a reset token
// @Summary Reset the password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	if err := h.resetService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "password updated"})
}

// GetMe returns the authenticated credential
// @Summary Get the current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.CredentialResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	credentialID := c.GetString(ContextCredentialID)
	if credentialID == "" {
		writeError(c, h.logger, domain.NewAuthError("invalid or expired token"))
		return
	}

	credential, err := h.authService.GetCredential(c.Request.Context(), credentialID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCredentialResponse(credential))
}
