package crawler

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RateLimit != 15 {
		t.Errorf("RateLimit = %v, want 15", cfg.RateLimit)
	}
	if cfg.Workers != 20 {
		t.Errorf("Workers = %d, want 20", cfg.Workers)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if !cfg.RespectRobots {
		t.Error("RespectRobots = false, want true")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.StartURL = "https://example.com"
		cfg.AllowURLs = []string{`^https://example\.com/`}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing start URL",
			mutate:  func(c *Config) { c.StartURL = "" },
			wantErr: true,
		},
		{
			name:    "relative start URL",
			mutate:  func(c *Config) { c.StartURL = "/path/only" },
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.StartURL = "ftp://example.com" },
			wantErr: true,
		},
		{
			name:    "empty allow list",
			mutate:  func(c *Config) { c.AllowURLs = nil },
			wantErr: true,
		},
		{
			name:    "invalid allow pattern",
			mutate:  func(c *Config) { c.AllowURLs = []string{"["} },
			wantErr: true,
		},
		{
			name:    "invalid disallow pattern",
			mutate:  func(c *Config) { c.DisallowURLs = []string{"("} },
			wantErr: true,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimit = 0 },
			wantErr: true,
		},
		{
			name:    "negative host rate limit",
			mutate:  func(c *Config) { c.HostRateLimit = -1 },
			wantErr: true,
		},
		{
			name:    "host rate limit disabled",
			mutate:  func(c *Config) { c.HostRateLimit = 0 },
			wantErr: false,
		},
		{
			name:    "negative max pages",
			mutate:  func(c *Config) { c.MaxPages = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `start_url: https://example.com
allow_urls:
  - ^https://example\.com/
rate_limit: 5
workers: 4
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.StartURL != "https://example.com" {
		t.Errorf("StartURL = %q", cfg.StartURL)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %v, want 5", cfg.RateLimit)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	// Unset fields keep their defaults.
	if !cfg.RespectRobots {
		t.Error("RespectRobots lost its default")
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"start_url": "https://example.com", "allow_urls": ["^https://example\\.com/"], "workers": 8}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFromFile() on missing file should fail")
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartURL = "https://example.com"
	cfg.AllowURLs = []string{`^https://example\.com/`}
	cfg.Workers = 7

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Workers != 7 || loaded.StartURL != cfg.StartURL {
		t.Errorf("reloaded config = %+v", loaded)
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartURL = "https://example.com"
	cfg.AllowURLs = []string{"a"}

	clone := cfg.Clone()
	clone.StartURL = "https://other.example"
	clone.AllowURLs[0] = "b"

	if cfg.StartURL != "https://example.com" {
		t.Error("Clone() shares StartURL with original")
	}
	if cfg.AllowURLs[0] != "a" {
		t.Error("Clone() shares AllowURLs slice with original")
	}
}
