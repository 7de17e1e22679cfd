package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string
	}
	Auth struct {
		BaseURL     string
		CookieName  string
		CookieValue string // used by the whoami and logout commands only
		Timeout     time.Duration
	}
	Session struct {
		Store    string
		Lifetime time.Duration
	}
	DB struct {
		DSN string
	}
	InsecureCookies bool
}

// Load reads config from environment (STREAK_ prefix) and optional streakcraft.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STREAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("streakcraft")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional config file

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.cookie_name", "refresh_token")
	v.SetDefault("auth.timeout", "0s")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.lifetime", "24h")

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.Auth.BaseURL = v.GetString("auth.base_url")
	cfg.Auth.CookieName = v.GetString("auth.cookie_name")
	cfg.Auth.CookieValue = v.GetString("auth.cookie_value")
	cfg.Session.Store = v.GetString("session.store")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")

	timeout, err := time.ParseDuration(v.GetString("auth.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAK_AUTH_TIMEOUT: %w", err)
	}
	cfg.Auth.Timeout = timeout

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAK_SESSION_LIFETIME: %w", err)
	}
	cfg.Session.Lifetime = lifetime

	if cfg.Auth.BaseURL == "" {
		return nil, fmt.Errorf("STREAK_AUTH_BASE_URL is required")
	}
	switch cfg.Session.Store {
	case "memory":
	case "sqlite3", "mysql", "postgres":
		if cfg.DB.DSN == "" {
			return nil, fmt.Errorf("STREAK_DB_DSN is required when STREAK_SESSION_STORE is %s", cfg.Session.Store)
		}
	default:
		return nil, fmt.Errorf("unsupported STREAK_SESSION_STORE %q: must be memory, sqlite3, mysql, or postgres", cfg.Session.Store)
	}

	return cfg, nil
}
