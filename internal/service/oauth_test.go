package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/stretchr/testify/mock"
	"github.com/wegift/auth-service/internal/domain"
	"github.com/wegift/auth-service/internal/repository/memory"
	"golang.org/x/oauth2"
)

// newOAuth serves a token endpoint that accepts the code "good" and a
// userinfo endpoint answering with info
func (s *AuthServiceSuite) newOAuth(info userInfo) *OAuthManager {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})

	srv := httptest.NewServer(mux)
	s.T().Cleanup(srv.Close)

	config := GoogleConfig("client-id", "client-secret", "https://auth.wegift.test/api/v1/auth/oauth/google/callback")
	config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}

	return NewGoogleOAuth(s.manager, s.repos.Identity, config, WithUserInfoURL(srv.URL+"/userinfo"))
}

func googleUser(sub, email string) userInfo {
	return userInfo{Subject: sub, Email: email, EmailVerified: true, GivenName: "Grace", FamilyName: "Hopper"}
}

func (s *AuthServiceSuite) TestOAuth_AuthCodeURLCarriesState() {
	oauth := s.newOAuth(googleUser("g-1", "g@x.com"))

	u, err := url.Parse(oauth.AuthCodeURL("state-123"))
	s.Require().NoError(err)
	s.Equal("state-123", u.Query().Get("state"))
	s.Equal("client-id", u.Query().Get("client_id"))
	s.Contains(u.Query().Get("scope"), "email")
}

func (s *AuthServiceSuite) TestOAuth_ExchangeRejectsBadCode() {
	oauth := s.newOAuth(googleUser("g-1", "g@x.com"))

	_, err := oauth.ExchangeOAuthCode(s.ctx, "bad")
	s.requireKind(err, domain.KindAuth)

	_, err = oauth.ExchangeOAuthCode(s.ctx, "")
	s.requireKind(err, domain.KindValidation)
}

func (s *AuthServiceSuite) TestOAuth_CreatesActiveCredential() {
	oauth := s.newOAuth(googleUser("g-new", "new@x.com"))

	tokens, err := oauth.LoginWithOAuth(s.ctx, "good", "go-test", "192.0.2.7")
	s.Require().NoError(err)
	s.True(tokens.Remember)
	s.Equal(s.cfg.RememberTTL, tokens.RefreshTTL)

	credential, err := s.repos.Credential.GetByEmail(s.ctx, "new@x.com")
	s.Require().NoError(err)
	s.True(credential.IsActive)
	s.Equal(tokens.CredentialID, credential.ID)

	s.profiles.AssertCalled(s.T(), "CreateProfile", mock.Anything, mock.MatchedBy(func(p domain.Profile) bool {
		return p.CredentialID == credential.ID && p.FirstName == "Grace"
	}))

	_, err = s.manager.Authenticate(s.ctx, "new@x.com", "")
	s.requireKind(err, domain.KindAuth)

	again, err := oauth.LoginWithOAuth(s.ctx, "good", "go-test", "192.0.2.7")
	s.Require().NoError(err)
	s.Equal(credential.ID, again.CredentialID)
	s.NotEqual(tokens.SessionID, again.SessionID)
}

func (s *AuthServiceSuite) TestOAuth_LinksExistingCredentialByEmail() {
	credential := s.register("linked@x.com")
	oauth := s.newOAuth(googleUser("g-link", "LINKED@x.com"))

	tokens, err := oauth.LoginWithOAuth(s.ctx, "good", "", "")
	s.Require().NoError(err)
	s.Equal(credential.ID, tokens.CredentialID)

	stored, err := s.repos.Credential.GetByID(s.ctx, credential.ID)
	s.Require().NoError(err)
	s.True(stored.IsActive, "a verified provider email activates the account")

	link, err := s.repos.Identity.GetByProvider(s.ctx, ProviderGoogle, "g-link")
	s.Require().NoError(err)
	s.Equal(credential.ID, link.CredentialID)
}

func (s *AuthServiceSuite) TestOAuth_ExistingLinkWinsOverEmail() {
	first := s.registerActive("first@x.com")
	s.registerActive("second@x.com")

	oauth := s.newOAuth(googleUser("g-stable", "first@x.com"))
	_, err := oauth.LoginWithOAuth(s.ctx, "good", "", "")
	s.Require().NoError(err)

	credential, err := oauth.LinkOrCreateCredential(s.ctx, domain.ExternalIdentity{
		Provider:       ProviderGoogle,
		ProviderUserID: "g-stable",
		Email:          "second@x.com",
		EmailVerified:  true,
	})
	s.Require().NoError(err)
	s.Equal(first.ID, credential.ID)
}

func (s *AuthServiceSuite) TestOAuth_RequiresVerifiedEmail() {
	info := googleUser("g-unverified", "unverified@x.com")
	info.EmailVerified = false
	oauth := s.newOAuth(info)

	_, err := oauth.LoginWithOAuth(s.ctx, "good", "", "")
	s.requireKind(err, domain.KindAuth)
}

func (s *AuthServiceSuite) TestOAuth_SuspendedCredential() {
	credential := s.registerActive("banned@x.com")
	s.Require().NoError(memory.Suspend(s.repos, credential.ID))

	oauth := s.newOAuth(googleUser("g-banned", "banned@x.com"))
	_, err := oauth.LoginWithOAuth(s.ctx, "good", "", "")
	s.requireKind(err, domain.KindAuth)
}
