package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/blogauth/internal/logger"
)

const (
	defaultListenAddr        = "localhost:8000"
	defaultLoggingLevel      = logger.LevelInfo
	defaultEnvironment       = logger.EnvProduction
	defaultAccessTTL         = 15 * time.Minute
	defaultRefreshTTL        = 14 * 24 * time.Hour
	defaultRefreshRateLimit  = 30
	defaultRefreshRateWindow = time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	// In-memory storage is used if empty
	DatabaseDSN string

	// Secret key
	// Access and refresh tokens are signed with it
	SecretKey string

	// Environment
	Environment string

	// Token lifetimes
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Redis to keep refresh rate limit counters in
	// Rate limit is off if empty
	RedisURL          string
	RefreshRateLimit  int
	RefreshRateWindow time.Duration

	// Send auth cookies over https only
	CookieSecure bool

	// Revoke every session of the user when a used refresh token shows up again
	RevokeFamilyOnReuse bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel:          defaultLoggingLevel,
		ListenAddr:        defaultListenAddr,
		Environment:       defaultEnvironment,
		AccessTTL:         defaultAccessTTL,
		RefreshTTL:        defaultRefreshTTL,
		RefreshRateLimit:  defaultRefreshRateLimit,
		RefreshRateWindow: defaultRefreshRateWindow,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			i, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = i
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":            setString(&c.ListenAddr),
		"DATABASE_URI":           setString(&c.DatabaseDSN),
		"SECRET_KEY":             setString(&c.SecretKey),
		"LOG_LEVEL":              setString(&c.LogLevel),
		"ENVIRONMENT":            setString(&c.Environment),
		"ACCESS_TOKEN_TTL":       setDuration(&c.AccessTTL),
		"REFRESH_TOKEN_TTL":      setDuration(&c.RefreshTTL),
		"REDIS_URL":              setString(&c.RedisURL),
		"REFRESH_RATE_LIMIT":     setInt(&c.RefreshRateLimit),
		"REFRESH_RATE_WINDOW":    setDuration(&c.RefreshRateWindow),
		"COOKIE_SECURE":          setBool(&c.CookieSecure),
		"REVOKE_FAMILY_ON_REUSE": setBool(&c.RevokeFamilyOnReuse),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid value of %s. Err: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("blogauth", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.StringVarP(&c.RedisURL, "redis", "r", c.RedisURL, "Redis url for refresh rate limit")
	fs.IntVar(&c.RefreshRateLimit, "refresh-rate-limit", c.RefreshRateLimit, "Max refresh attempts per user in a window")
	fs.DurationVar(&c.RefreshRateWindow, "refresh-rate-window", c.RefreshRateWindow, "Refresh rate limit window")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Set Secure attribute on auth cookies")
	fs.BoolVar(&c.RevokeFamilyOnReuse, "revoke-family-on-reuse", c.RevokeFamilyOnReuse, "Revoke all user sessions on refresh token reuse")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	switch {
	case c.SecretKey == "":
		return errors.New("secret key is required")
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("token lifetimes must be positive")
	case c.RedisURL != "" && (c.RefreshRateLimit <= 0 || c.RefreshRateWindow <= 0):
		return errors.New("refresh rate limit and window must be positive")
	}
	return nil
}
