// Package config reads runtime settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Configured reports whether credentials are present for sending mail.
func (s SMTP) Configured() bool { return s.User != "" && s.Pass != "" }

type Admin struct {
	Username string
	Password string
	// Defaulted is set when the development fallback credentials are in use.
	Defaulted bool
}

type Config struct {
	Port         string
	GinMode      string
	LogLevel     string
	DatabasePath string
	AssetsDir    string
	ContentPath  string
	PageViewTTL  time.Duration
	PageViewMax  int
	// CookieSecure marks the page-view and admin cookies Secure.
	CookieSecure bool
	SMTP         SMTP
	Admin        Admin
}

func (c Config) Addr() string { return ":" + c.Port }

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:         get("PORT", "8080"),
		GinMode:      get("GIN_MODE", "release"),
		LogLevel:     get("LOG_LEVEL", "info"),
		DatabasePath: get("DATABASE_PATH", "portfolio.db"),
		AssetsDir:    get("ASSETS_DIR", "public"),
		ContentPath:  get("CONTENT_PATH", ""),
		SMTP: SMTP{
			Host: get("SMTP_HOST", "smtp.gmail.com"),
			Port: get("SMTP_PORT", "587"),
			User: get("SMTP_USER", ""),
			Pass: get("SMTP_PASS", ""),
			To:   get("TO_EMAIL", "jamie@jamiewells.dev"),
		},
		Admin: Admin{
			Username: get("ADMIN_USERNAME", ""),
			Password: get("ADMIN_PASSWORD", ""),
		},
	}

	ttl, err := time.ParseDuration(get("PAGEVIEW_TTL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("PAGEVIEW_TTL: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("PAGEVIEW_TTL must be positive, got %s", ttl)
	}
	cfg.PageViewTTL = ttl

	maxPages, err := strconv.Atoi(get("PAGEVIEW_MAX", "10000"))
	if err != nil {
		return Config{}, fmt.Errorf("PAGEVIEW_MAX: %w", err)
	}
	if maxPages <= 0 {
		return Config{}, fmt.Errorf("PAGEVIEW_MAX must be positive, got %d", maxPages)
	}
	cfg.PageViewMax = maxPages

	secure, err := strconv.ParseBool(get("COOKIE_SECURE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	cfg.CookieSecure = secure

	if cfg.Admin.Username == "" || cfg.Admin.Password == "" {
		if cfg.GinMode == "release" {
			return Config{}, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required in release mode")
		}
		cfg.Admin = Admin{Username: "admin", Password: "admin123", Defaulted: true}
	}
	return cfg, nil
}
