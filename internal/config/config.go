package config

import (
	"fmt"
	"strings"
	"time"
)

// Icon cache backends.
const (
	IconBackendFile     = "file"
	IconBackendSQLite   = "sqlite"
	IconBackendRedis    = "redis"
	IconBackendPostgres = "postgres"
	IconBackendMemory   = "memory"
)

const DefaultFallbackIconService = "https://www.google.com/s2/favicons?domain=%s&sz=64"

type Config struct {
	//===============
	// Resolution
	//===============
	// Maximum time of a single outbound request
	timeout time.Duration
	// Ceiling of simultaneous outbound requests, primary and enrichment combined
	maxConcurrent int
	// Whether the icon is resolved at all
	showIcon bool
	// Presentation hint forwarded to callers; resolution always fetches the description
	includeDescription bool
	// Presentation hint forwarded to callers on how to render http errors
	httpErrorsAreWarnings bool
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Upper bound on the response body read per request
	maxBodyBytes int64

	//===============
	// Cache
	//===============
	// Maximum number of resolved records kept in memory
	cacheCapacity int
	// Age after which a cached icon is treated as absent
	iconExpiry time.Duration
	// One of the IconBackend* constants
	iconBackend string
	// File path for the file and sqlite backends
	iconPath string
	// Address for the redis backend
	redisAddr string
	// Connection string for the postgres backend
	postgresDSN string
	// Icon lookup service URL, with %s replaced by the host. Empty disables the lookup.
	fallbackIconService string

	//===============
	// Politeness
	//===============
	// Minimum, fixed waiting time between two requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		timeout:                10 * time.Second,
		maxConcurrent:          10,
		showIcon:               true,
		includeDescription:     true,
		httpErrorsAreWarnings:  false,
		userAgent:              "linkmeta/1.0",
		maxBodyBytes:           5 << 20,
		cacheCapacity:          500,
		iconExpiry:             30 * 24 * time.Hour,
		iconBackend:            IconBackendFile,
		iconPath:               "linkmeta-icons.json",
		redisAddr:              "localhost:6379",
		fallbackIconService:    DefaultFallbackIconService,
		baseDelay:              0,
		jitter:                 0,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             1,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     2 * time.Second,
	}
	return &defaultConfig
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithMaxConcurrent(n int) *Config {
	c.maxConcurrent = n
	return c
}

func (c *Config) WithShowIcon(show bool) *Config {
	c.showIcon = show
	return c
}

func (c *Config) WithIncludeDescription(include bool) *Config {
	c.includeDescription = include
	return c
}

func (c *Config) WithHTTPErrorsAreWarnings(warn bool) *Config {
	c.httpErrorsAreWarnings = warn
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxBodyBytes(n int64) *Config {
	c.maxBodyBytes = n
	return c
}

func (c *Config) WithCacheCapacity(capacity int) *Config {
	c.cacheCapacity = capacity
	return c
}

func (c *Config) WithIconExpiry(expiry time.Duration) *Config {
	c.iconExpiry = expiry
	return c
}

func (c *Config) WithIconBackend(backend string) *Config {
	c.iconBackend = backend
	return c
}

func (c *Config) WithIconPath(path string) *Config {
	c.iconPath = path
	return c
}

func (c *Config) WithRedisAddr(addr string) *Config {
	c.redisAddr = addr
	return c
}

func (c *Config) WithPostgresDSN(dsn string) *Config {
	c.postgresDSN = dsn
	return c
}

func (c *Config) WithFallbackIconService(service string) *Config {
	c.fallbackIconService = service
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) Build() (Config, error) {
	if err := c.Resolution().Validate(); err != nil {
		return Config{}, err
	}
	if c.userAgent == "" {
		return Config{}, fmt.Errorf("%w: userAgent cannot be empty", ErrInvalidConfig)
	}
	if c.maxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("%w: maxBodyBytes must be positive, got %d", ErrInvalidConfig, c.maxBodyBytes)
	}
	if c.cacheCapacity < 1 {
		return Config{}, fmt.Errorf("%w: cacheCapacity must be at least 1, got %d", ErrInvalidConfig, c.cacheCapacity)
	}
	if c.iconExpiry <= 0 {
		return Config{}, fmt.Errorf("%w: iconExpiry must be positive, got %v", ErrInvalidConfig, c.iconExpiry)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1, got %d", ErrInvalidConfig, c.maxAttempt)
	}
	if c.backoffMultiplier < 1 {
		return Config{}, fmt.Errorf("%w: backoffMultiplier must be at least 1, got %v", ErrInvalidConfig, c.backoffMultiplier)
	}
	if c.baseDelay < 0 || c.jitter < 0 {
		return Config{}, fmt.Errorf("%w: baseDelay and jitter cannot be negative", ErrInvalidConfig)
	}
	if c.fallbackIconService != "" && !strings.Contains(c.fallbackIconService, "%s") {
		return Config{}, fmt.Errorf("%w: fallbackIconService must contain %%s", ErrInvalidConfig)
	}

	switch c.iconBackend {
	case IconBackendFile, IconBackendSQLite:
		if c.iconPath == "" {
			return Config{}, fmt.Errorf("%w: iconPath is required for the %s backend", ErrInvalidConfig, c.iconBackend)
		}
	case IconBackendRedis:
		if c.redisAddr == "" {
			return Config{}, fmt.Errorf("%w: redisAddr is required for the redis backend", ErrInvalidConfig)
		}
	case IconBackendPostgres:
		if c.postgresDSN == "" {
			return Config{}, fmt.Errorf("%w: postgresDSN is required for the postgres backend", ErrInvalidConfig)
		}
	case IconBackendMemory:
	default:
		return Config{}, fmt.Errorf("%w: unknown iconBackend %q", ErrInvalidConfig, c.iconBackend)
	}

	return *c, nil
}

// Resolution derives the per-call options handed to the resolver.
func (c Config) Resolution() ResolutionConfig {
	return ResolutionConfig{
		Timeout:               c.timeout,
		MaxConcurrent:         c.maxConcurrent,
		ShowIcon:              c.showIcon,
		IncludeDescription:    c.includeDescription,
		HTTPErrorsAreWarnings: c.httpErrorsAreWarnings,
	}
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) MaxConcurrent() int {
	return c.maxConcurrent
}

func (c Config) ShowIcon() bool {
	return c.showIcon
}

func (c Config) IncludeDescription() bool {
	return c.includeDescription
}

func (c Config) HTTPErrorsAreWarnings() bool {
	return c.httpErrorsAreWarnings
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MaxBodyBytes() int64 {
	return c.maxBodyBytes
}

func (c Config) CacheCapacity() int {
	return c.cacheCapacity
}

func (c Config) IconExpiry() time.Duration {
	return c.iconExpiry
}

func (c Config) IconBackend() string {
	return c.iconBackend
}

func (c Config) IconPath() string {
	return c.iconPath
}

func (c Config) RedisAddr() string {
	return c.redisAddr
}

func (c Config) PostgresDSN() string {
	return c.postgresDSN
}

func (c Config) FallbackIconService() string {
	return c.fallbackIconService
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}
