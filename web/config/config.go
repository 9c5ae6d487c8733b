// Package config assembles the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	_ "time/tzdata"

	"spinwheel/utils"
)

type Config struct {
	Port    string
	GinMode string
	AppEnv  string

	DBDriver       string
	DSN            string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration

	JWTSecret string
	TokenTTL  time.Duration
	Location  *time.Location

	SMTPServer string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	FromAddr   string
	FromName   string

	FrontendURL string

	SheetsID      string
	SheetsKeyJSON string
	SheetsTab     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OffersFile         string
	PendingSweep       time.Duration
	RateLimitPerMinute int
	CORSOrigins        []string
	TrustedProxies     []string
}

func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// Load reads every key, collecting all problems instead of stopping at the
// first one.
func Load() (Config, error) {
	var errs []error
	durationOf := func(key string, fallback time.Duration) time.Duration {
		d, err := utils.GetEnvDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}
	intOf := func(key string, fallback int) int {
		n, err := utils.GetEnvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := Config{
		Port:    utils.GetEnv("PORT", "8080"),
		GinMode: utils.GetEnv("GIN_MODE", "release"),
		AppEnv:  utils.GetEnv("APP_ENV", "production"),

		DBDriver:       strings.ToLower(utils.GetEnv("DB_DRIVER", "mysql")),
		DSN:            utils.GetEnv("DB", ""),
		ConnectTimeout: durationOf("DB_CONNECT_TIMEOUT", 5*time.Second),
		OpTimeout:      durationOf("DB_OP_TIMEOUT", 30*time.Second),

		JWTSecret: utils.GetEnv("JWT_SECRET", ""),
		TokenTTL:  durationOf("TOKEN_TTL", 30*24*time.Hour),

		SMTPServer: utils.GetEnv("SMTP_SERVER", ""),
		SMTPPort:   utils.GetEnv("SMTP_PORT", "587"),
		SMTPUser:   utils.GetEnv("SMTP_USER", ""),
		SMTPPass:   utils.GetEnv("SMTP_PASS", ""),
		FromAddr:   utils.GetEnv("FROM_ADDR", ""),
		FromName:   utils.GetEnv("FROM_NAME", "CASPIAN Restaurant"),

		FrontendURL: utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),

		SheetsID:      utils.GetEnv("GOOGLE_SHEETS_ID", ""),
		SheetsKeyJSON: utils.GetEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		SheetsTab:     utils.GetEnv("GOOGLE_SHEETS_TAB", "CASPIAN_Coupons"),

		RedisAddr:     utils.GetEnv("REDIS_ADDR", ""),
		RedisPassword: utils.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       intOf("REDIS_DB", 0),

		OffersFile:         utils.GetEnv("OFFERS_FILE", ""),
		PendingSweep:       durationOf("PENDING_SWEEP_INTERVAL", 10*time.Minute),
		RateLimitPerMinute: intOf("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:        splitList(utils.GetEnv("CORS_ORIGINS", "*")),
		TrustedProxies:     splitList(utils.GetEnv("TRUSTED_PROXIES", "")),
	}

	tz := utils.GetEnv("TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
		if cfg.DSN == "" {
			errs = append(errs, fmt.Errorf("DB is required for DB_DRIVER=%s", cfg.DBDriver))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	for _, p := range cfg.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p))
			}
		}
	}
	if cfg.PendingSweep <= 0 {
		errs = append(errs, errors.New("PENDING_SWEEP_INTERVAL must be positive"))
	}

	return cfg, errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
