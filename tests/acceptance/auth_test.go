//go:build acceptance

package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/wegift/auth-service/internal/dto"
	"github.com/wegift/auth-service/internal/handler"
	"github.com/wegift/auth-service/internal/utils"
)

const password = "Aa1!aaaa"

func (s *Suite) postJSON(path string, body any, cookies ...*http.Cookie) *http.Response {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) get(path string, cookies ...*http.Cookie) *http.Response {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+path, nil)
	s.Require().NoError(err)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func cookieMap(resp *http.Response) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

func (s *Suite) registerAndActivate(email string) string {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:         email,
		Password:      password,
		AcceptedTerms: true,
		BirthDate:     "1990-01-01",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var registered dto.RegisterResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&registered))

	activation := s.get("/api/v1/auth/activate?token=" + url.QueryEscape(s.emails.token("account-activation", email)))
	activation.Body.Close()
	s.Require().Equal(http.StatusOK, activation.StatusCode)

	return registered.UserID
}

func (s *Suite) login(email string, remember bool) map[string]*http.Cookie {
	resp := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: email, Password: password, Remember: remember})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return cookieMap(resp)
}

func (s *Suite) TestRegister_Success() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:         "test@example.com",
		Password:      password,
		AcceptedTerms: true,
		BirthDate:     "1990-01-01",
		FirstName:     "Test",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var registered dto.RegisterResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&registered))
	s.NotEmpty(registered.UserID)
	s.Empty(resp.Cookies(), "registration does not sign in")
	s.NotEmpty(s.emails.token("account-activation", "test@example.com"))
}

func (s *Suite) TestRegister_DuplicateEmailIgnoresCase() {
	s.registerAndActivate("duplicate@example.com")

	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:         "Duplicate@Example.com",
		Password:      password,
		AcceptedTerms: true,
		BirthDate:     "1990-01-01",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidInput() {
	cases := map[string]dto.RegisterRequest{
		"invalid email":   {Email: "invalid-email", Password: password, AcceptedTerms: true, BirthDate: "1990-01-01"},
		"weak password":   {Email: "weak@example.com", Password: "short", AcceptedTerms: true, BirthDate: "1990-01-01"},
		"terms declined":  {Email: "terms@example.com", Password: password, BirthDate: "1990-01-01"},
		"future birthday": {Email: "future@example.com", Password: password, AcceptedTerms: true, BirthDate: "2999-01-01"},
	}

	for name, req := range cases {
		s.Run(name, func() {
			resp := s.postJSON("/api/v1/auth/register", req)
			defer resp.Body.Close()
			s.Equal(http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func (s *Suite) TestLogin_BeforeActivation() {
	resp := s.postJSON("/api/v1/auth/register", dto.RegisterRequest{
		Email:         "pending@example.com",
		Password:      password,
		AcceptedTerms: true,
		BirthDate:     "1990-01-01",
	})
	resp.Body.Close()

	resp = s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "pending@example.com", Password: password})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("account not activated", errResp.Message)
}

func (s *Suite) TestLogin_InvalidCredentials() {
	s.registerAndActivate("known@example.com")

	unknown := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "nonexistent@example.com", Password: password})
	defer unknown.Body.Close()
	wrong := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "known@example.com", Password: "Wrong1!pass"})
	defer wrong.Body.Close()

	s.Equal(http.StatusUnauthorized, unknown.StatusCode)
	s.Equal(http.StatusUnauthorized, wrong.StatusCode)

	var unknownErr, wrongErr dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(unknown.Body).Decode(&unknownErr))
	s.Require().NoError(json.NewDecoder(wrong.Body).Decode(&wrongErr))
	s.Equal(unknownErr, wrongErr)
}

func (s *Suite) TestGetMe_WithCookieAndBearer() {
	s.registerAndActivate("getme@example.com")
	cookies := s.login("getme@example.com", false)

	resp := s.get("/api/v1/auth/me", cookies[handler.AccessTokenCookie])
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var me dto.CredentialResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&me))
	s.Equal("getme@example.com", me.Email)
	s.True(me.IsActive)

	req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+cookies[handler.AccessTokenCookie].Value)
	bearer, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer bearer.Body.Close()
	s.Equal(http.StatusOK, bearer.StatusCode)
}

func (s *Suite) TestGetMe_NoToken() {
	resp := s.get("/api/v1/auth/me")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_RotationAndReuseDetection() {
	s.registerAndActivate("refresh@example.com")
	first := s.login("refresh@example.com", true)

	resp := s.postJSON("/api/v1/auth/refresh", nil, first[handler.SessionIDCookie], first[handler.RefreshTokenCookie])
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	second := cookieMap(resp)
	s.NotEqual(first[handler.RefreshTokenCookie].Value, second[handler.RefreshTokenCookie].Value)

	reused := s.postJSON("/api/v1/auth/refresh", nil, first[handler.SessionIDCookie], first[handler.RefreshTokenCookie])
	reused.Body.Close()
	s.Equal(http.StatusUnauthorized, reused.StatusCode)

	var revokedAt *string
	err := s.Postgres.DB.QueryRowContext(context.Background(),
		`SELECT revoked_at::text FROM sessions WHERE id = $1`, first[handler.SessionIDCookie].Value).Scan(&revokedAt)
	s.Require().NoError(err)
	s.NotNil(revokedAt, "reuse revokes the session")

	after := s.postJSON("/api/v1/auth/refresh", nil, second[handler.SessionIDCookie], second[handler.RefreshTokenCookie])
	after.Body.Close()
	s.Equal(http.StatusUnauthorized, after.StatusCode)
}

func (s *Suite) TestLogout_RevokesSession() {
	s.registerAndActivate("logout@example.com")
	cookies := s.login("logout@example.com", false)

	resp := s.postJSON("/api/v1/auth/logout", nil, cookies[handler.SessionIDCookie])
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	me := s.get("/api/v1/auth/me", cookies[handler.AccessTokenCookie])
	me.Body.Close()
	s.Equal(http.StatusUnauthorized, me.StatusCode)

	again := s.postJSON("/api/v1/auth/logout", nil, cookies[handler.SessionIDCookie])
	again.Body.Close()
	s.Equal(http.StatusOK, again.StatusCode)
}

func (s *Suite) TestPasswordReset() {
	unknown := s.postJSON("/api/v1/auth/forgot-password", dto.EmailRequest{Email: "nobody@example.com"})
	unknown.Body.Close()
	s.Equal(http.StatusOK, unknown.StatusCode)
	s.Equal(0, s.countRows(`SELECT COUNT(*) FROM password_reset_tokens`))

	userID := s.registerAndActivate("reset@example.com")
	cookies := s.login("reset@example.com", true)

	resp := s.postJSON("/api/v1/auth/forgot-password", dto.EmailRequest{Email: "reset@example.com"})
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1, s.countRows(`SELECT COUNT(*) FROM password_reset_tokens`))

	token := s.emails.token("password-reset", "reset@example.com")
	s.Require().NotEmpty(token)
	var storedHash string
	s.Require().NoError(s.Postgres.DB.QueryRow(
		`SELECT token_hash FROM password_reset_tokens WHERE credential_id = $1`, userID).Scan(&storedHash))
	s.Equal(utils.HashLookupToken(token), storedHash)

	fabricated := s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{Token: "fabricated", NewPassword: "Bb2@bbbbbb"})
	fabricated.Body.Close()
	s.Contains([]int{http.StatusNotFound, http.StatusUnauthorized}, fabricated.StatusCode)

	reset := s.postJSON("/api/v1/auth/reset-password", dto.ResetPasswordRequest{Token: token, NewPassword: "Bb2@bbbbbb"})
	reset.Body.Close()
	s.Equal(http.StatusOK, reset.StatusCode)
	s.Equal(0, s.countRows(`SELECT COUNT(*) FROM password_reset_tokens`))

	refresh := s.postJSON("/api/v1/auth/refresh", nil, cookies[handler.SessionIDCookie], cookies[handler.RefreshTokenCookie])
	refresh.Body.Close()
	s.Equal(http.StatusUnauthorized, refresh.StatusCode, "a reset revokes existing sessions")

	login := s.postJSON("/api/v1/auth/login", dto.LoginRequest{Email: "reset@example.com", Password: "Bb2@bbbbbb"})
	login.Body.Close()
	s.Equal(http.StatusOK, login.StatusCode)
}

func (s *Suite) countRows(query string) int {
	var n int
	s.Require().NoError(s.Postgres.DB.QueryRow(query).Scan(&n))
	return n
}
