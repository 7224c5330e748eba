package model

import "time"

// Config is the complete thermobook configuration
type Config struct {
	Site         SiteConfig        `yaml:"site" mapstructure:"site"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Robots       RobotsConfig      `yaml:"robots" mapstructure:"robots"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Walk         WalkConfig        `yaml:"walk" mapstructure:"walk"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// SiteConfig points at the WebBook host
type SiteConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HTTPConfig controls the page fetcher
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per request
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   uint64        `yaml:"max_retries" mapstructure:"max_retries"` // Retries after the first attempt
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig is the per-domain token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RobotsConfig toggles robots.txt compliance
type RobotsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds concurrent substance walks
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// WalkConfig bounds a single substance walk
type WalkConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // Whole walk, all fetches
}

// StoreConfig locates the document store
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig is the query API listener
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: DefaultBaseURL,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "thermobook/0.3 (+https://github.com/ppiankov/thermobook)",
			MaxBodyBytes: 5_000_000,
			MaxRetries:   2,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Robots: RobotsConfig{
			Enabled: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskDir:   ".thermobook-cache",
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Walk: WalkConfig{
			Timeout: 2 * time.Minute,
		},
		Store: StoreConfig{
			Path: "thermobook.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
