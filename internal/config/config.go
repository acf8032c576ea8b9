package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	derrors "github.com/vango-dev/docrender/internal/errors"
)

const (
	// ConfigName is the configuration file name without extension.
	ConfigName = "docrender"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DOCRENDER"
)

// Config is the complete docrender configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Modules    ModulesConfig    `mapstructure:"modules"`
	Components ComponentsConfig `mapstructure:"components"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Document   DocumentConfig   `mapstructure:"document"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// path is the file the configuration was read from, if any.
	path string
}

// ServerConfig controls the HTTP host.
type ServerConfig struct {
	// Addr is the listen address (default: ":8080").
	Addr string `mapstructure:"addr"`
	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// RenderTimeout bounds one page render, producers included.
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
	// Compress enables gzip/deflate responses.
	Compress bool `mapstructure:"compress"`
}

// TemplatesConfig controls page template lookup.
type TemplatesConfig struct {
	// Dir holds one directory per template.
	Dir string `mapstructure:"dir"`
	// Default is the template used when a request names none.
	Default string `mapstructure:"default"`
	// File is the page file rendered when a request names none.
	File string `mapstructure:"file"`
	// Fallback is the template consulted when a file is missing.
	Fallback string `mapstructure:"fallback"`
}

// ModulesConfig selects the module store.
type ModulesConfig struct {
	// Store is "memory", "yaml" or "sql".
	Store string `mapstructure:"store"`
	// Seed is the YAML file for the yaml store.
	Seed string `mapstructure:"seed"`
	// Driver is the database/sql driver name for the sql store.
	Driver string `mapstructure:"driver"`
	// DSN is the database connection string.
	DSN string `mapstructure:"dsn"`
	// Dialect is "postgres", "mysql" or "sqlite".
	Dialect string `mapstructure:"dialect"`
	// TablePrefix is prepended to the modules tables.
	TablePrefix string `mapstructure:"table_prefix"`
	// Units is a directory of <producer>.tmpl module units.
	Units string `mapstructure:"units"`
}

// ComponentsConfig locates the components that fill the main area.
type ComponentsConfig struct {
	// Dir is a directory of com_<name>.tmpl components.
	Dir string `mapstructure:"dir"`
	// Access maps a component name to the minimum access level it needs.
	Access map[string]int `mapstructure:"access"`
}

// CacheConfig controls the fragment cache.
type CacheConfig struct {
	// Enabled is the global caching switch. Modules still opt in with cache=1.
	Enabled bool `mapstructure:"enabled"`
	// Backend is "memory" or "s3".
	Backend string `mapstructure:"backend"`
	// TTL applies to modules without a cache_time parameter.
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupInterval is how often the memory backend drops expired entries.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// S3 configures the s3 backend.
	S3 S3Config `mapstructure:"s3"`
}

// S3Config locates the bucket used by the s3 cache backend.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// DocumentConfig sets document defaults.
type DocumentConfig struct {
	// Generator is the default Generator meta tag.
	Generator string `mapstructure:"generator"`
	// Base is the default base URL; empty omits the base tag.
	Base string `mapstructure:"base"`
	// Language is the default page language.
	Language string `mapstructure:"language"`
	// DefaultStyle is the module chrome used for unknown styles.
	DefaultStyle string `mapstructure:"default_style"`
	// Concurrency bounds producers running at once per render.
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `mapstructure:"level"`
	// Format is "text" or "json".
	Format string `mapstructure:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  30 * time.Second,
			RenderTimeout: 10 * time.Second,
			Compress:      true,
		},
		Templates: TemplatesConfig{
			Dir:      "templates",
			Default:  "_system",
			File:     "index.html",
			Fallback: "_system",
		},
		Modules: ModulesConfig{
			Store:   "memory",
			Driver:  "postgres",
			Dialect: "postgres",
		},
		Cache: CacheConfig{
			Enabled:         false,
			Backend:         "memory",
			TTL:             15 * time.Minute,
			CleanupInterval: time.Minute,
			S3: S3Config{
				Prefix: "fragments/",
				Region: "us-east-1",
			},
		},
		Document: DocumentConfig{
			Generator:    "docrender",
			Language:     "en-gb",
			DefaultStyle: "table",
			Concurrency:  8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "docrender",
			Path:      "/metrics",
		},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.render_timeout", d.Server.RenderTimeout)
	v.SetDefault("server.compress", d.Server.Compress)

	v.SetDefault("templates.dir", d.Templates.Dir)
	v.SetDefault("templates.default", d.Templates.Default)
	v.SetDefault("templates.file", d.Templates.File)
	v.SetDefault("templates.fallback", d.Templates.Fallback)

	v.SetDefault("modules.store", d.Modules.Store)
	v.SetDefault("modules.seed", d.Modules.Seed)
	v.SetDefault("modules.driver", d.Modules.Driver)
	v.SetDefault("modules.dsn", d.Modules.DSN)
	v.SetDefault("modules.dialect", d.Modules.Dialect)
	v.SetDefault("modules.table_prefix", d.Modules.TablePrefix)
	v.SetDefault("modules.units", d.Modules.Units)

	v.SetDefault("components.dir", d.Components.Dir)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("cache.s3.bucket", d.Cache.S3.Bucket)
	v.SetDefault("cache.s3.prefix", d.Cache.S3.Prefix)
	v.SetDefault("cache.s3.region", d.Cache.S3.Region)
	v.SetDefault("cache.s3.endpoint", d.Cache.S3.Endpoint)
	v.SetDefault("cache.s3.path_style", d.Cache.S3.PathStyle)
	v.SetDefault("cache.s3.access_key", d.Cache.S3.AccessKey)
	v.SetDefault("cache.s3.secret_key", d.Cache.S3.SecretKey)

	v.SetDefault("document.generator", d.Document.Generator)
	v.SetDefault("document.base", d.Document.Base)
	v.SetDefault("document.language", d.Document.Language)
	v.SetDefault("document.default_style", d.Document.DefaultStyle)
	v.SetDefault("document.concurrency", d.Document.Concurrency)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path. An empty path searches the working
// directory for docrender.yaml, .json or .toml; finding none is not an error.
func Load(path string) (*Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, derrors.New("C101").
				WithDetail(fmt.Sprintf("reading %s", describe(path))).
				Wrap(err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, derrors.New("C101").Wrap(err)
	}
	cfg.path = v.ConfigFileUsed()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, derrors.New("C100").
			WithDetail(errs.Error()).
			WithSuggestion("Fix the listed keys in the config file or the matching DOCRENDER_* variables")
	}
	return &cfg, nil
}

func describe(path string) string {
	if path == "" {
		return ConfigName + ".*"
	}
	return path
}

// Path returns the file the configuration was read from, or "".
func (c *Config) Path() string {
	return c.path
}

// SlogLevel converts Logging.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the slog logger described by Logging, writing to w
// (os.Stderr when nil).
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
