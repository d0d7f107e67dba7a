package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/service"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	SessionIDCookie    = "sid"
	oauthStateCookie   = "oauthState"
)

// CookieWriter sets the session cookies with the deployment's attributes
type CookieWriter struct {
	domain string
	secure bool
}

func NewCookieWriter(domain string, secure bool) *CookieWriter {
	return &CookieWriter{domain: domain, secure: secure}
}

func (w *CookieWriter) set(c *gin.Context, name, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.domain,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case maxAge > 0:
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	case maxAge < 0:
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(c.Writer, cookie)
}

// SetSession writes the access, refresh and sid cookies. Refresh and sid are
// session-scoped unless the user asked to be remembered.
func (w *CookieWriter) SetSession(c *gin.Context, tokens service.SessionTokens) {
	w.set(c, AccessTokenCookie, tokens.AccessToken, tokens.AccessTTL)

	var persist time.Duration
	if tokens.Remember {
		persist = tokens.RefreshTTL
	}
	w.set(c, RefreshTokenCookie, tokens.RefreshToken, persist)
	w.set(c, SessionIDCookie, tokens.SessionID, persist)
}

// ClearSession expires all session cookies
func (w *CookieWriter) ClearSession(c *gin.Context) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, SessionIDCookie} {
		w.set(c, name, "", -1)
	}
}
