package crawler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/websweep/websweep/internal/admission"
)

// Config holds all crawler configuration.
type Config struct {
	// URL the crawl starts from
	StartURL string `json:"start_url" yaml:"start_url"`

	// Regex patterns a URL must match to be admitted
	AllowURLs []string `json:"allow_urls" yaml:"allow_urls"`

	// Regex patterns that exclude a URL even when allowed
	DisallowURLs []string `json:"disallow_urls" yaml:"disallow_urls"`

	// Global fetch budget in requests per second
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Token bucket burst for the rate limiter
	RateBurst int `json:"rate_burst" yaml:"rate_burst"`

	// Additional per-host requests-per-second cap; 0 disables it
	HostRateLimit float64 `json:"host_rate_limit" yaml:"host_rate_limit"`

	// Token bucket burst for the per-host limiters
	HostRateBurst int `json:"host_rate_burst" yaml:"host_rate_burst"`

	// Restrict the crawl to the start URL's registrable domain
	SameSiteOnly bool `json:"same_site_only" yaml:"same_site_only"`

	// Number of concurrent workers
	Workers int `json:"workers" yaml:"workers"`

	// Per-request timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// User agent sent with every request
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Stop after this many pages; 0 means unlimited
	MaxPages int64 `json:"max_pages" yaml:"max_pages"`

	// Honor robots.txt disallow rules
	RespectRobots bool `json:"respect_robots" yaml:"respect_robots"`

	// Retry transient fetch failures
	RetryTransient bool `json:"retry_transient" yaml:"retry_transient"`

	// Custom headers to include in all requests
	CustomHeaders map[string]string `json:"custom_headers" yaml:"custom_headers"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	Format     string `json:"format" yaml:"format"`
	Pretty     bool   `json:"pretty" yaml:"pretty"`
	StreamMode bool   `json:"stream_mode" yaml:"stream_mode"`
	FilePath   string `json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RateLimit:      15,
		RateBurst:      1,
		Workers:        20,
		Timeout:        10 * time.Second,
		UserAgent:      "websweep/1.0 (+https://github.com/websweep/websweep)",
		RespectRobots:  true,
		RetryTransient: true,
		Output: OutputConfig{
			Format:     "json",
			Pretty:     true,
			StreamMode: false,
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration before any worker starts. An empty
// allow list is rejected here rather than silently admitting nothing.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return fmt.Errorf("start URL is required")
	}

	u, err := url.Parse(c.StartURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("start URL %q is not an absolute HTTP(S) URL", c.StartURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("start URL scheme %q is not supported", u.Scheme)
	}

	if len(c.AllowURLs) == 0 {
		return fmt.Errorf("at least one allow pattern is required")
	}

	// Compile patterns now so bad regexes fail before the crawl starts.
	if _, err := admission.NewPatternPolicy(c.AllowURLs, c.DisallowURLs); err != nil {
		return err
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	if c.HostRateLimit < 0 {
		return fmt.Errorf("host rate limit must not be negative")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
