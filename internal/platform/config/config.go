package config

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	AppBaseURL     string
	RequestTimeout time.Duration
	TrustedProxies []netip.Prefix
}

// DatabaseConfig holds Postgres connection settings. An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL disables IP rate limiting.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ClerkConfig configures bearer token verification against the identity provider's JWKS.
type ClerkConfig struct {
	Issuer  string
	JWKSURL string
}

// StripeConfig configures checkout and webhook intake.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
}

// AnthropicConfig configures the generation client.
type AnthropicConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64
}

// Config is the fully resolved service configuration.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Clerk     ClerkConfig
	Stripe    StripeConfig
	Anthropic AnthropicConfig
	// AdminEmails seeds the in-memory allowlist when no database is configured.
	AdminEmails []string
}

const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 1500
)

// Load reads an optional .env file, then resolves every setting from the environment with defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DORKFORGE_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", 60*time.Second)

	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)

	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("ANTHROPIC_MODEL", DefaultModel)
	v.SetDefault("ANTHROPIC_MAX_TOKENS", DefaultMaxTokens)
}

func fromViper(v *viper.Viper) (*Config, error) {
	proxies, err := parsePrefixes(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: Server{
			Addr:           v.GetString("DORKFORGE_ADDR"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AppBaseURL:     strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			TrustedProxies: proxies,
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Clerk: ClerkConfig{
			Issuer:  v.GetString("CLERK_ISSUER"),
			JWKSURL: v.GetString("CLERK_JWKS_URL"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
			PriceID:       v.GetString("STRIPE_DORK_PRICE_ID"),
		},
		Anthropic: AnthropicConfig{
			APIKey:    v.GetString("ANTHROPIC_API_KEY"),
			BaseURL:   v.GetString("ANTHROPIC_BASE_URL"),
			Model:     v.GetString("ANTHROPIC_MODEL"),
			MaxTokens: v.GetInt64("ANTHROPIC_MAX_TOKENS"),
		},
		AdminEmails: splitList(v.GetString("ADMIN_EMAILS")),
	}
	return cfg, nil
}

// parsePrefixes accepts a comma separated list of CIDRs or bare addresses.
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range splitList(raw) {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
			}
			out = append(out, p)
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
