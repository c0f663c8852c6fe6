package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string         `default:"0.0.0.0:8080" usage:"API server listen address" yaml:"addr"`
	CatalogFiles []string       `usage:"Catalog files (.yaml, .json, optionally .gz); the built-in catalog is used when neither files nor a database are set" flag:"catalog" yaml:"catalog_files"`
	DatabaseURL  string         `usage:"PostgreSQL connection URL; when set the catalog is loaded from the database" flag:"database-url" yaml:"database_url"`
	Graceful     GracefulConfig `yaml:"graceful"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay" yaml:"readiness_delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout" yaml:"shutdown_timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	ac.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the PORT and DATABASE_URL variables set by
// hosting platforms onto the CHECKOUT_-prefixed configuration. DATABASE_URL
// is ignored when catalog files are configured.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" && len(c.CatalogFiles) == 0 {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL != "" && len(c.CatalogFiles) > 0 {
		return errors.New("catalog files and database URL are mutually exclusive")
	}
	if c.Graceful.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}
