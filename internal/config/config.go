package config

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Backend transport modes.
const (
	ModeHTTP     = "http"
	ModePostgres = "postgres"
)

// Config holds the terminal agent configuration, loadable from environment
// variables (CAFEPOS_ prefix) or YAML config files.
type Config struct {
	Addr      string `default:"127.0.0.1:8081" usage:"Local API listen address"`
	JWTSecret string `default:"dev-secret-change-in-production" usage:"Secret for local API tokens"`
	Backend   BackendConfig
	Poll      PollConfig
	CORS      CORSConfig
	Log       LogConfig
}

// BackendConfig selects how remote procedures are called.
type BackendConfig struct {
	Mode        string        `default:"http" usage:"Backend transport: http (PostgREST) or postgres"`
	URL         string        `usage:"PostgREST base URL"`
	APIKey      string        `usage:"PostgREST API key"`
	DatabaseURL string        `usage:"PostgreSQL connection URL for postgres mode"`
	Schema      string        `default:"public" usage:"Schema holding the procedures"`
	Timeout     time.Duration `default:"15s" usage:"Remote call timeout"`
}

// PollConfig controls the pending-order refresh loop.
type PollConfig struct {
	Interval    time.Duration `default:"10s" usage:"Refresh interval while the orders screen is shown"`
	NotifiedCap int           `default:"512" usage:"Max kitchen updates remembered as shown"`
}

// CORSConfig controls which UI shell origins may call the local API.
type CORSConfig struct {
	Origins []string `default:"http://localhost:*" usage:"Allowed CORS origins"`
}

// LogConfig controls logging output.
type LogConfig struct {
	File  string `usage:"Also write JSON logs to this file"`
	Debug bool   `default:"false" usage:"Enable debug logging"`
}

// Load loads configuration from environment variables and YAML files and
// validates the backend settings.
func Load() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CAFEPOS",
		SkipFlags: true,
		Files:     []string{"config.yaml", "/etc/cafepos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend mode has what it needs.
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case ModeHTTP:
		if c.Backend.URL == "" {
			return errors.New("backend URL is required: set CAFEPOS_BACKEND_URL")
		}
	case ModePostgres:
		if c.Backend.DatabaseURL == "" {
			return errors.New("database URL is required: set CAFEPOS_BACKEND_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown backend mode %q", c.Backend.Mode)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	return nil
}

// applyPlatformDefaults maps the unprefixed variables the backend tooling
// already exports.
func (c *Config) applyPlatformDefaults() {
	c.Backend.Mode = strings.ToLower(strings.TrimSpace(c.Backend.Mode))
	if c.Backend.DatabaseURL == "" {
		c.Backend.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Backend.URL == "" {
		c.Backend.URL = os.Getenv("SUPABASE_URL")
	}
	if c.Backend.APIKey == "" {
		c.Backend.APIKey = os.Getenv("SUPABASE_ANON_KEY")
	}
}
