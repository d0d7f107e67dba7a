package handler

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/service"
	"github.com/wegift/auth-service/internal/utils"
	"go.uber.org/zap"
)

const oauthStateTTL = 10 * time.Minute

// OAuthHandler drives the provider redirect flow
type OAuthHandler struct {
	oauthService service.OAuthService
	cookies      *CookieWriter
	frontendURL  string
	logger       *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(oauthService service.OAuthService, cookies *CookieWriter, frontendURL string, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		cookies:      cookies,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		logger:       logger,
	}
}

// Start redirects to the provider consent page with a fresh state cookie
// @Summary Start Google sign-in
// @Tags oauth
// @Success 302
// @Router /auth/oauth/google [get]
func (h *OAuthHandler) Start(c *gin.Context) {
	state, err := utils.NewStateToken()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.cookies.set(c, oauthStateCookie, state, oauthStateTTL)
	c.Redirect(http.StatusFound, h.oauthService.AuthCodeURL(state))
}

// Callback finishes the provider flow and lands the user on the frontend
// @Summary Google sign-in callback
// @Tags oauth
// @Success 302
// @Router /auth/oauth/google/callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	h.cookies.set(c, oauthStateCookie, "", -1)

	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		h.fail(c, "invalid_state")
		return
	}

	if providerErr := c.Query("error"); providerErr != "" {
		h.fail(c, "access_denied")
		return
	}

	tokens, err := h.oauthService.LoginWithOAuth(c.Request.Context(), c.Query("code"), c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		h.logger.Warn("oauth login failed", zap.Error(err))
		h.fail(c, "oauth_failed")
		return
	}

	h.cookies.SetSession(c, tokens)
	c.Redirect(http.StatusFound, h.frontendURL+"/")
}

func (h *OAuthHandler) fail(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.frontendURL+"/login?"+url.Values{"error": {reason}}.Encode())
}
