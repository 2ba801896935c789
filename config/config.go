// Package config loads langsys settings from defaults, an optional YAML file
// and LANGSYS_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaguanLabs/langsys"
	"github.com/ZaguanLabs/langsys/cache"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Defaults.
const (
	DefaultAPIURL    = "https://api.langsys.dev/api"
	DefaultCacheTTL  = 3600
	DefaultRedisURL  = "redis://localhost:6379"
	DefaultRateLimit = 120
	DefaultLogLevel  = "warn"
	DefaultModel     = "gpt-4o-mini"
)

// Ledger drivers.
const (
	LedgerCache  = "cache"
	LedgerSQLite = "sqlite"
)

// Config holds every setting.
type Config struct {
	APIKey          string   `mapstructure:"api_key"`
	ProjectID       string   `mapstructure:"project_id"`
	APIURL          string   `mapstructure:"api_url"`
	BaseURL         string   `mapstructure:"base_url"`
	DefaultCategory string   `mapstructure:"default_category"`
	Selectors       string   `mapstructure:"selectors"`
	RateLimit       int      `mapstructure:"rate_limit"`
	Locales         []string `mapstructure:"locales"`

	Cache  Cache  `mapstructure:"cache"`
	Ledger Ledger `mapstructure:"ledger"`
	Log    Log    `mapstructure:"log"`
	OpenAI OpenAI `mapstructure:"openai"`
}

// Cache selects the persistent cache.
type Cache struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	TTL      int    `mapstructure:"ttl"` // Seconds
	RedisURL string `mapstructure:"redis_url"`
}

// Ledger selects where registered items are remembered.
type Ledger struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// Log configures the zap logger.
type Log struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// OpenAI configures AI drafting.
type OpenAI struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// envBindings maps config keys to their environment variables, first match wins.
var envBindings = map[string][]string{
	"api_key":          {"LANGSYS_API_KEY"},
	"project_id":       {"LANGSYS_PROJECT_ID"},
	"api_url":          {"LANGSYS_API_URL"},
	"base_url":         {"LANGSYS_BASE_URL"},
	"default_category": {"LANGSYS_DEFAULT_CATEGORY"},
	"selectors":        {"LANGSYS_SELECTORS"},
	"rate_limit":       {"LANGSYS_RATE_LIMIT"},
	"locales":          {"LANGSYS_LOCALES"},
	"cache.driver":     {"LANGSYS_CACHE_DRIVER"},
	"cache.path":       {"LANGSYS_CACHE_PATH"},
	"cache.ttl":        {"LANGSYS_CACHE_TTL"},
	"cache.redis_url":  {"LANGSYS_REDIS_URL"},
	"ledger.driver":    {"LANGSYS_LEDGER"},
	"ledger.path":      {"LANGSYS_LEDGER_PATH"},
	"log.level":        {"LANGSYS_LOG_LEVEL"},
	"log.path":         {"LANGSYS_LOG_PATH"},
	"openai.api_key":   {"LANGSYS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"openai.model":     {"LANGSYS_OPENAI_MODEL", "OPENAI_MODEL"},
	"openai.base_url":  {"LANGSYS_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
}

// NewViper returns a viper instance with defaults and environment bindings
// applied. Command line flags may be bound onto it before Load.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("rate_limit", DefaultRateLimit)
	v.SetDefault("cache.driver", cache.DriverFile)
	v.SetDefault("cache.path", filepath.Join(os.TempDir(), "langsys-cache"))
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.redis_url", DefaultRedisURL)
	v.SetDefault("ledger.driver", LedgerCache)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("openai.model", DefaultModel)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
	return v
}

// Load reads configuration using a fresh viper instance.
func Load(path string) (*Config, error) {
	return LoadViper(NewViper(), path)
}

// LoadViper reads the config file (path, or langsys.yaml in the working
// directory or $HOME) into v and decodes the result. A missing default file
// is not an error.
func LoadViper(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("langsys")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &langsys.ConfigError{Key: "config", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &langsys.ConfigError{Key: "config", Message: err.Error()}
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.APIURL = strings.TrimRight(c.APIURL, "/")

	// LANGSYS_LOCALES arrives as one comma separated string.
	var locales []string
	for _, l := range c.Locales {
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				locales = append(locales, langsys.NormalizeLocale(part))
			}
		}
	}
	c.Locales = locales
}

// Validate checks the settings needed to talk to the service.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &langsys.ConfigError{Key: "api_key", Message: "required (set LANGSYS_API_KEY)"}
	}
	if c.ProjectID == "" {
		return &langsys.ConfigError{Key: "project_id", Message: "required (set LANGSYS_PROJECT_ID)"}
	}
	return c.ValidateLocal()
}

// ValidateLocal checks the settings used without the service.
func (c *Config) ValidateLocal() error {
	switch c.Cache.Driver {
	case cache.DriverMemory, cache.DriverFile, cache.DriverRedis, cache.DriverNull, cache.DriverNone, "":
	default:
		return &langsys.ConfigError{Key: "cache.driver", Message: "unknown driver " + c.Cache.Driver}
	}
	switch c.Ledger.Driver {
	case LedgerCache, LedgerSQLite, "":
	default:
		return &langsys.ConfigError{Key: "ledger.driver", Message: "unknown driver " + c.Ledger.Driver}
	}
	if c.Ledger.Driver == LedgerSQLite && c.Ledger.Path == "" {
		return &langsys.ConfigError{Key: "ledger.path", Message: "required for the sqlite ledger"}
	}
	if c.Cache.TTL < 0 {
		return &langsys.ConfigError{Key: "cache.ttl", Message: "must not be negative"}
	}
	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return &langsys.ConfigError{Key: "log.level", Message: err.Error()}
		}
	}
	return nil
}

// CacheOptions returns the options of cache.New.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		TTL:      time.Duration(c.Cache.TTL) * time.Second,
		Path:     c.Cache.Path,
		RedisURL: c.Cache.RedisURL,
	}
}
