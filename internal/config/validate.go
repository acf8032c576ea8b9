package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is one invalid configuration value.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid value.
type ValidationErrors []ValidationError

// Error implements error.
func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Valid option values.
var (
	ValidStores     = []string{"memory", "yaml", "sql"}
	ValidBackends   = []string{"memory", "s3"}
	ValidDialects   = []string{"postgres", "postgresql", "mysql", "sqlite", "sqlite3"}
	ValidLogLevels  = []string{"debug", "info", "warn", "warning", "error"}
	ValidLogFormats = []string{"text", "json"}
	ValidStyles     = []string{"none", "table", "horz", "xhtml", "rounded"}
)

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}
	oneOf := func(field, value string, valid []string) {
		if !slices.Contains(valid, strings.ToLower(value)) {
			add(field, value, "must be one of "+strings.Join(valid, ", "))
		}
	}

	if c.Server.Addr == "" {
		add("server.addr", c.Server.Addr, "must not be empty")
	}
	if c.Server.RenderTimeout < 0 {
		add("server.render_timeout", c.Server.RenderTimeout, "must not be negative")
	}

	if c.Templates.Dir == "" {
		add("templates.dir", c.Templates.Dir, "must not be empty")
	}
	if c.Templates.File == "" {
		add("templates.file", c.Templates.File, "must not be empty")
	}
	if c.Templates.Fallback == "" {
		add("templates.fallback", c.Templates.Fallback, "must not be empty")
	}

	oneOf("modules.store", c.Modules.Store, ValidStores)
	switch strings.ToLower(c.Modules.Store) {
	case "yaml":
		if c.Modules.Seed == "" {
			add("modules.seed", c.Modules.Seed, "is required for the yaml store")
		}
	case "sql":
		if c.Modules.DSN == "" {
			add("modules.dsn", c.Modules.DSN, "is required for the sql store")
		}
		oneOf("modules.dialect", c.Modules.Dialect, ValidDialects)
	}

	oneOf("cache.backend", c.Cache.Backend, ValidBackends)
	if c.Cache.TTL < 0 {
		add("cache.ttl", c.Cache.TTL, "must not be negative")
	}
	if c.Cache.Enabled && strings.EqualFold(c.Cache.Backend, "s3") && c.Cache.S3.Bucket == "" {
		add("cache.s3.bucket", c.Cache.S3.Bucket, "is required for the s3 backend")
	}

	oneOf("document.default_style", c.Document.DefaultStyle, ValidStyles)
	if c.Document.Concurrency < 1 {
		add("document.concurrency", c.Document.Concurrency, "must be at least 1")
	}

	oneOf("logging.level", c.Logging.Level, ValidLogLevels)
	oneOf("logging.format", c.Logging.Format, ValidLogFormats)

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path", c.Metrics.Path, "must start with /")
	}

	return errs
}
