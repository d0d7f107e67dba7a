package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/service"
	"github.com/wegift/auth-service/pkg/database"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAccessTokenFrom(t *testing.T) {
	cases := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer header", "Bearer abc", "", "abc"},
		{"scheme is case insensitive", "bearer abc", "", "abc"},
		{"header wins over cookie", "Bearer abc", "def", "abc"},
		{"cookie fallback", "", "def", "def"},
		{"other scheme", "Basic abc", "def", ""},
		{"nothing", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				c.Request.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				c.Request.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tc.cookie})
			}

			assert.Equal(t, tc.want, accessTokenFrom(c))
		})
	}
}

func TestAuthMiddleware_SetsClaims(t *testing.T) {
	auth := &authServiceMock{}
	claims := domain.AccessClaims{CredentialID: "cred-1", SessionID: "sid-1", Role: domain.RoleAdmin}
	auth.On("EnsureAuthenticated", mock.Anything, "abc").Return(claims, nil)

	router := gin.New()
	router.GET("/private", AuthMiddleware(auth, zap.NewNop()), func(c *gin.Context) {
		assert.Equal(t, "cred-1", c.GetString(ContextCredentialID))
		assert.Equal(t, "sid-1", c.GetString(ContextSessionID))
		got, _ := c.Get(ContextClaims)
		assert.Equal(t, claims, got)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	auth.AssertExpectations(t)
}

func TestAuthMiddleware_Aborts(t *testing.T) {
	auth := &authServiceMock{}
	auth.On("EnsureAuthenticated", mock.Anything, "expired").
		Return(domain.AccessClaims{}, domain.NewAuthError("invalid or expired token"))

	reached := false
	router := gin.New()
	router.GET("/private", AuthMiddleware(auth, zap.NewNop()), func(c *gin.Context) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "expired"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)
}

func newLimitedRouter(t *testing.T, limit int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	limiter := service.NewRateLimiter(database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})))

	router := gin.New()
	rule := RateLimitRule{Scope: "login", Limit: limit, Window: time.Minute}
	router.POST("/login", RateLimitMiddleware(limiter, rule, IPBasedKey, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, mr
}

func postFrom(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	router, _ := newLimitedRouter(t, 2)

	first := postFrom(router, "192.0.2.1:1234")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	require.Equal(t, http.StatusOK, postFrom(router, "192.0.2.1:1234").Code)

	limited := postFrom(router, "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, postFrom(router, "192.0.2.2:1234").Code, "other clients keep their budget")
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	router, mr := newLimitedRouter(t, 1)
	mr.SetError("LOADING")

	assert.Equal(t, http.StatusOK, postFrom(router, "192.0.2.1:1234").Code)
	assert.Equal(t, http.StatusOK, postFrom(router, "192.0.2.1:1234").Code)
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://app.wegift.test"}, []string{"GET", "POST"}, []string{"Content-Type"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.wegift.test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://app.wegift.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.test")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCookieWriter_Attributes(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	NewCookieWriter("wegift.test", true).SetSession(c, service.SessionTokens{
		SessionID:    "sid-1",
		AccessToken:  "access",
		AccessTTL:    30 * time.Minute,
		RefreshToken: "refresh",
		RefreshTTL:   24 * time.Hour,
	})

	cookies := responseCookies(w)
	require.Len(t, cookies, 3)
	for _, cookie := range cookies {
		assert.True(t, cookie.HttpOnly, cookie.Name)
		assert.True(t, cookie.Secure, cookie.Name)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite, cookie.Name)
		assert.Equal(t, "/", cookie.Path, cookie.Name)
		assert.Equal(t, "wegift.test", cookie.Domain, cookie.Name)
	}
	assert.Equal(t, 1800, cookies[AccessTokenCookie].MaxAge)
	assert.Zero(t, cookies[RefreshTokenCookie].MaxAge)
	assert.Zero(t, cookies[SessionIDCookie].MaxAge)
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, zap.NewNop(), context.DeadlineExceeded)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error","message":"internal server error"}`, w.Body.String())
}
