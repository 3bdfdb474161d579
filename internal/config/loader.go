package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "LINKMETA"

type configDTO struct {
	Timeout                time.Duration `mapstructure:"timeout"`
	MaxConcurrent          int           `mapstructure:"maxconcurrent"`
	ShowIcon               bool          `mapstructure:"showicon"`
	IncludeDescription     bool          `mapstructure:"includedescription"`
	HTTPErrorsAreWarnings  bool          `mapstructure:"httperrorsarewarnings"`
	UserAgent              string        `mapstructure:"useragent"`
	MaxBodyBytes           int64         `mapstructure:"maxbodybytes"`
	CacheCapacity          int           `mapstructure:"cachecapacity"`
	IconExpiry             time.Duration `mapstructure:"iconexpiry"`
	IconBackend            string        `mapstructure:"iconbackend"`
	IconPath               string        `mapstructure:"iconpath"`
	RedisAddr              string        `mapstructure:"redisaddr"`
	PostgresDSN            string        `mapstructure:"postgresdsn"`
	FallbackIconService    string        `mapstructure:"fallbackiconservice"`
	BaseDelay              time.Duration `mapstructure:"basedelay"`
	Jitter                 time.Duration `mapstructure:"jitter"`
	RandomSeed             int64         `mapstructure:"randomseed"`
	MaxAttempt             int           `mapstructure:"maxattempt"`
	BackoffInitialDuration time.Duration `mapstructure:"backoffinitialduration"`
	BackoffMultiplier      float64       `mapstructure:"backoffmultiplier"`
	BackoffMaxDuration     time.Duration `mapstructure:"backoffmaxduration"`
}

// Load reads configuration from defaults, then the optional file at path
// (JSON or YAML, by extension), then LINKMETA_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, WithDefault())

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			if errors.As(err, &pathErr) {
				return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
			}
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	}

	var dto configDTO
	if err := v.Unmarshal(&dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("timeout", d.timeout)
	v.SetDefault("maxConcurrent", d.maxConcurrent)
	v.SetDefault("showIcon", d.showIcon)
	v.SetDefault("includeDescription", d.includeDescription)
	v.SetDefault("httpErrorsAreWarnings", d.httpErrorsAreWarnings)
	v.SetDefault("userAgent", d.userAgent)
	v.SetDefault("maxBodyBytes", d.maxBodyBytes)
	v.SetDefault("cacheCapacity", d.cacheCapacity)
	v.SetDefault("iconExpiry", d.iconExpiry)
	v.SetDefault("iconBackend", d.iconBackend)
	v.SetDefault("iconPath", d.iconPath)
	v.SetDefault("redisAddr", d.redisAddr)
	v.SetDefault("postgresDSN", d.postgresDSN)
	v.SetDefault("fallbackIconService", d.fallbackIconService)
	v.SetDefault("baseDelay", d.baseDelay)
	v.SetDefault("jitter", d.jitter)
	v.SetDefault("randomSeed", d.randomSeed)
	v.SetDefault("maxAttempt", d.maxAttempt)
	v.SetDefault("backoffInitialDuration", d.backoffInitialDuration)
	v.SetDefault("backoffMultiplier", d.backoffMultiplier)
	v.SetDefault("backoffMaxDuration", d.backoffMaxDuration)
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	return WithDefault().
		WithTimeout(dto.Timeout).
		WithMaxConcurrent(dto.MaxConcurrent).
		WithShowIcon(dto.ShowIcon).
		WithIncludeDescription(dto.IncludeDescription).
		WithHTTPErrorsAreWarnings(dto.HTTPErrorsAreWarnings).
		WithUserAgent(dto.UserAgent).
		WithMaxBodyBytes(dto.MaxBodyBytes).
		WithCacheCapacity(dto.CacheCapacity).
		WithIconExpiry(dto.IconExpiry).
		WithIconBackend(dto.IconBackend).
		WithIconPath(dto.IconPath).
		WithRedisAddr(dto.RedisAddr).
		WithPostgresDSN(dto.PostgresDSN).
		WithFallbackIconService(dto.FallbackIconService).
		WithBaseDelay(dto.BaseDelay).
		WithJitter(dto.Jitter).
		WithRandomSeed(dto.RandomSeed).
		WithMaxAttempt(dto.MaxAttempt).
		WithBackoffInitialDuration(dto.BackoffInitialDuration).
		WithBackoffMultiplier(dto.BackoffMultiplier).
		WithBackoffMaxDuration(dto.BackoffMaxDuration).
		Build()
}
