package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Session  SessionConfig  `env:",prefix=SESSION_"`
	Security SecurityConfig `env:",prefix=SECURITY_"`
	Cookie   CookieConfig   `env:",prefix=COOKIE_"`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Services ServicesConfig `env:",prefix=SERVICES_"`
	OAuth    OAuthConfig    `env:",prefix=OAUTH_"`
	Env      string         `env:"ENV,default=development"`
	// Base URL of the web client, used for activation and reset links
	FrontendURL string `env:"FRONTEND_URL,default=http://localhost:3000"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=wegift_auth"`
	Password string `env:"PASSWORD,default=wegift_auth_password"`
	DBName   string `env:"DB,default=wegift_auth_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret                string   `env:"SECRET,required"`
	Issuer                string   `env:"ISSUER,default=wegift-auth"`
	Audience              string   `env:"AUDIENCE,default=wegift"`
	AccessTokenExpiry     Duration `env:"ACCESS_TOKEN_EXPIRY,default=30m"`
	ActivationTokenExpiry Duration `env:"ACTIVATION_TOKEN_EXPIRY,default=24h"`
}

type SessionConfig struct {
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=24h"`
	RememberMeExpiry   Duration `env:"REMEMBER_ME_EXPIRY,default=30d"`
	RefreshHashCost    int      `env:"REFRESH_HASH_COST,default=12"`
}

type SecurityConfig struct {
	BCryptCost            int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests     int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow       Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	ResetTokenExpiry      Duration `env:"RESET_TOKEN_EXPIRY,default=30m"`
	RevokeSessionsOnReset bool     `env:"REVOKE_SESSIONS_ON_RESET,default=true"`
}

type CookieConfig struct {
	// Optional shared parent domain, e.g. ".wegift.app"
	Domain string `env:"DOMAIN,default="`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

type ServicesConfig struct {
	UserServiceURL         string   `env:"USER_URL,default=http://localhost:8082"`
	NotificationServiceURL string   `env:"NOTIFICATION_URL,default="`
	InternalToken          string   `env:"INTERNAL_TOKEN,default="`
	Timeout                Duration `env:"TIMEOUT,default=5s"`
}

type OAuthConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,default="`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,default="`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL,default=http://localhost:8080/api/v1/auth/oauth/google/callback"`
}

// GoogleEnabled reports whether Google sign-in is configured
func (o OAuthConfig) GoogleEnabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != ""
}

// IsProduction reports whether secure cookies and the JSON logger are used
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection string in URL form, as golang-migrate expects it
func (p PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

// Address returns the listen address of the HTTP server
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// MigrationConfig is the subset of the configuration needed to run migrations
type MigrationConfig struct {
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Env      string         `env:"ENV,default=development"`
}

// LoadMigration loads only the database settings, so migrations can run
// without the service's secrets
func LoadMigration(ctx context.Context) (*MigrationConfig, error) {
	var config MigrationConfig

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: envconfig.OsLookuper(),
	}); err != nil {
		return nil, fmt.Errorf("failed to load migration configuration: %w", err)
	}

	return &config, nil
}

// Validate enforces the security floor of the configuration
func (c Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLength))
	}
	if c.JWT.AccessTokenExpiry.Duration <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TOKEN_EXPIRY must be positive"))
	}
	if c.Session.RefreshTokenExpiry.Duration <= 0 || c.Session.RememberMeExpiry.Duration <= 0 {
		errs = append(errs, errors.New("SESSION refresh expiries must be positive"))
	}
	if c.Security.BCryptCost < 10 {
		errs = append(errs, errors.New("SECURITY_BCRYPT_COST must be at least 10"))
	}
	if c.Session.RefreshHashCost < 12 {
		errs = append(errs, errors.New("SESSION_REFRESH_HASH_COST must be at least 12"))
	}
	if c.IsProduction() && c.Services.InternalToken == "" {
		errs = append(errs, errors.New("SERVICES_INTERNAL_TOKEN is required in production"))
	}

	return errors.Join(errs...)
}
