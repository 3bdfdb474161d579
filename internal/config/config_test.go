package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDefault(t *testing.T) {
	cfg, err := config.WithDefault().Build()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 10, cfg.MaxConcurrent())
	assert.Equal(t, 500, cfg.CacheCapacity())
	assert.Equal(t, 30*24*time.Hour, cfg.IconExpiry())
	assert.True(t, cfg.ShowIcon())
	assert.True(t, cfg.IncludeDescription())
	assert.False(t, cfg.HTTPErrorsAreWarnings())
	assert.Equal(t, "linkmeta/1.0", cfg.UserAgent())
	assert.Equal(t, 1, cfg.MaxAttempt())
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffInitialDuration())
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
	assert.Equal(t, 2*time.Second, cfg.BackoffMaxDuration())
	assert.Equal(t, time.Duration(0), cfg.BaseDelay())
	assert.Equal(t, time.Duration(0), cfg.Jitter())
	assert.Equal(t, config.IconBackendFile, cfg.IconBackend())
	assert.Equal(t, config.DefaultFallbackIconService, cfg.FallbackIconService())
	assert.NotZero(t, cfg.RandomSeed())
}

func TestResolution(t *testing.T) {
	cfg, err := config.WithDefault().
		WithTimeout(3 * time.Second).
		WithMaxConcurrent(2).
		WithShowIcon(false).
		WithHTTPErrorsAreWarnings(true).
		Build()
	require.NoError(t, err)

	res := cfg.Resolution()
	assert.Equal(t, 3*time.Second, res.Timeout)
	assert.Equal(t, 2, res.MaxConcurrent)
	assert.False(t, res.ShowIcon)
	assert.True(t, res.IncludeDescription)
	assert.True(t, res.HTTPErrorsAreWarnings)
	assert.NoError(t, res.Validate())
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		build func() *config.Config
	}{
		{"zero timeout", func() *config.Config { return config.WithDefault().WithTimeout(0) }},
		{"zero concurrency", func() *config.Config { return config.WithDefault().WithMaxConcurrent(0) }},
		{"zero cache capacity", func() *config.Config { return config.WithDefault().WithCacheCapacity(0) }},
		{"negative icon expiry", func() *config.Config { return config.WithDefault().WithIconExpiry(-time.Hour) }},
		{"zero max attempt", func() *config.Config { return config.WithDefault().WithMaxAttempt(0) }},
		{"shrinking backoff", func() *config.Config { return config.WithDefault().WithBackoffMultiplier(0.5) }},
		{"empty user agent", func() *config.Config { return config.WithDefault().WithUserAgent("") }},
		{"negative jitter", func() *config.Config { return config.WithDefault().WithJitter(-time.Second) }},
		{"unknown backend", func() *config.Config { return config.WithDefault().WithIconBackend("s3") }},
		{"file backend without path", func() *config.Config { return config.WithDefault().WithIconPath("") }},
		{"postgres backend without dsn", func() *config.Config {
			return config.WithDefault().WithIconBackend(config.IconBackendPostgres)
		}},
		{"icon service without placeholder", func() *config.Config {
			return config.WithDefault().WithFallbackIconService("https://icons.test/lookup")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "expected ErrInvalidConfig, got %v", err)
		})
	}
}

func TestBuild_DisabledFallbackIconService(t *testing.T) {
	cfg, err := config.WithDefault().WithFallbackIconService("").Build()
	require.NoError(t, err)
	assert.Empty(t, cfg.FallbackIconService())
}

func TestBuild_MemoryBackendNeedsNoPath(t *testing.T) {
	_, err := config.WithDefault().WithIconBackend(config.IconBackendMemory).WithIconPath("").Build()
	assert.NoError(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 500, cfg.CacheCapacity())
}

func TestLoad_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkmeta.json")
	content := `{
		"timeout": "3s",
		"maxConcurrent": 4,
		"cacheCapacity": 50,
		"showIcon": false,
		"iconBackend": "sqlite",
		"iconPath": "/tmp/icons.db",
		"iconExpiry": "168h",
		"userAgent": "custom/2.0"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, 4, cfg.MaxConcurrent())
	assert.Equal(t, 50, cfg.CacheCapacity())
	assert.False(t, cfg.ShowIcon())
	assert.Equal(t, config.IconBackendSQLite, cfg.IconBackend())
	assert.Equal(t, "/tmp/icons.db", cfg.IconPath())
	assert.Equal(t, 7*24*time.Hour, cfg.IconExpiry())
	assert.Equal(t, "custom/2.0", cfg.UserAgent())
	// untouched keys keep their defaults
	assert.True(t, cfg.IncludeDescription())
	assert.Equal(t, 1, cfg.MaxAttempt())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkmeta.yaml")
	content := "maxConcurrent: 2\nmaxAttempt: 3\nbaseDelay: 250ms\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxConcurrent())
	assert.Equal(t, 3, cfg.MaxAttempt())
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LINKMETA_MAXCONCURRENT", "7")
	t.Setenv("LINKMETA_USERAGENT", "env-agent/1.0")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConcurrent())
	assert.Equal(t, "env-agent/1.0", cfg.UserAgent())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maxConcurrent": 0}`), 0644))

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
