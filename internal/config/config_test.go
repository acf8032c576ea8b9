package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/vango-dev/docrender/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.Empty(t, Default().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "_system", cfg.Templates.Fallback)
	assert.Equal(t, "", cfg.Path())
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "docrender.yaml", `
server:
  addr: ":9090"
  render_timeout: 3s
templates:
  dir: ./site
  default: rhuk
modules:
  store: yaml
  seed: ./modules.yaml
cache:
  enabled: true
  ttl: 2m
document:
  generator: "Widget 1.0"
  default_style: xhtml
components:
  dir: ./components
  access:
    secret: 2
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RenderTimeout)
	assert.Equal(t, "rhuk", cfg.Templates.Default)
	assert.Equal(t, "index.html", cfg.Templates.File)
	assert.Equal(t, "yaml", cfg.Modules.Store)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "Widget 1.0", cfg.Document.Generator)
	assert.Equal(t, "./components", cfg.Components.Dir)
	assert.Equal(t, map[string]int{"secret": 2}, cfg.Components.Access)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, path, cfg.Path())
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, "docrender.json", `{"document": {"concurrency": 2, "base": "https://example.test"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Document.Concurrency)
	assert.Equal(t, "https://example.test", cfg.Document.Base)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOCRENDER_SERVER_ADDR", ":7070")
	t.Setenv("DOCRENDER_CACHE_S3_BUCKET", "fragments")
	t.Setenv("DOCRENDER_CACHE_ENABLED", "true")
	t.Setenv("DOCRENDER_CACHE_BACKEND", "s3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "fragments", cfg.Cache.S3.Bucket)
	assert.Equal(t, "s3", cfg.Cache.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, derrors.HasCode(err, "C101"))
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, "docrender.yaml", "server: [unclosed")
	_, err := Load(path)
	assert.True(t, derrors.HasCode(err, "C101"))
}

func TestLoadInvalidValues(t *testing.T) {
	path := writeFile(t, "docrender.yaml", `
modules:
  store: sql
cache:
  backend: redis
document:
  concurrency: 0
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, derrors.HasCode(err, "C100"))
	assert.Contains(t, err.Error(), "modules.dsn")
	assert.Contains(t, err.Error(), "cache.backend")
	assert.Contains(t, err.Error(), "document.concurrency")
}

func TestValidateStoreRequirements(t *testing.T) {
	cfg := Default()
	cfg.Modules.Store = "yaml"
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "modules.seed", errs[0].Field)

	cfg = Default()
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "s3"
	errs = cfg.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "cache.s3.bucket", errs[0].Field)
}

func TestValidationErrorsString(t *testing.T) {
	assert.Equal(t, "", ValidationErrors{}.Error())

	one := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	assert.Equal(t, "a: bad (got: 1)", one.Error())

	two := append(one, ValidationError{Field: "b", Value: "", Message: "empty"})
	assert.Equal(t, "2 validation errors:\n  1. a: bad (got: 1)\n  2. b: empty (got: )", two.Error())
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
