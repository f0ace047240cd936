// Package config builds the server configuration once at startup from
// defaults, an optional .env file, environment variables and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"taskapi/internal/auth"
	"taskapi/internal/util"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultSecret = "dev-access-token-secret"
)

// Config holds runtime settings for the API server.
type Config struct {
	Addr           string
	DatabaseURI    string
	DatabaseName   string
	TokenSecret    string
	TokenTTL       time.Duration
	BcryptCost     int
	Env            string
	AuthGate       bool
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (when present), the environment and args, in increasing
// order of precedence.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := fromEnv()

	flags := flag.NewFlagSet("taskapi", flag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flags.StringVar(&cfg.DatabaseURI, "db", cfg.DatabaseURI, "MongoDB URI or path to sqlite database file")
	flags.StringVar(&cfg.DatabaseName, "db-name", cfg.DatabaseName, "MongoDB database name")
	flags.StringVar(&cfg.TokenSecret, "secret", cfg.TokenSecret, "Access token signing secret")
	flags.StringVar(&cfg.Env, "env", cfg.Env, "Runtime mode (development or production)")
	flags.BoolVar(&cfg.AuthGate, "auth-gate", cfg.AuthGate, "Require a bearer token to list tasks")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	addr := ":3000"
	if port := util.EnvOrDefault("PORT", ""); port != "" {
		addr = ":" + strings.TrimPrefix(port, ":")
	}

	return &Config{
		Addr:           addr,
		DatabaseURI:    util.EnvOrDefault("MONGO_URI", "data/taskapi.db"),
		DatabaseName:   util.EnvOrDefault("MONGO_DB", "taskapi"),
		TokenSecret:    util.EnvOrDefault("ACCESS_TOKEN_SECRET", ""),
		TokenTTL:       util.EnvDurationOrDefault("ACCESS_TOKEN_TTL", auth.AccessTokenTTL),
		BcryptCost:     util.EnvIntOrDefault("BCRYPT_COST", auth.DefaultBcryptCost),
		Env:            util.EnvOrDefault("NODE_ENV", EnvProduction),
		AuthGate:       util.EnvBoolOrDefault("AUTH_GATE", true),
		CORSOrigins:    util.EnvListOrDefault("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitRPS:   util.EnvFloatOrDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst: util.EnvIntOrDefault("RATE_LIMIT_BURST", 10),
	}
}

func (c *Config) validate() error {
	if c.TokenSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("ACCESS_TOKEN_SECRET must be set outside development")
		}
		c.TokenSecret = defaultSecret
	}
	if c.DatabaseURI == "" {
		return errors.New("database location must not be empty")
	}
	return nil
}

// IsDevelopment reports whether unexpected error details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// UsesMongo reports whether DatabaseURI names a MongoDB deployment rather
// than a sqlite file.
func (c *Config) UsesMongo() bool {
	return strings.HasPrefix(c.DatabaseURI, "mongodb://") || strings.HasPrefix(c.DatabaseURI, "mongodb+srv://")
}
