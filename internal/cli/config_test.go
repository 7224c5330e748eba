package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/thermobook/internal/model"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
	})
}

func TestLoadConfig_Layers(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "store:\n  path: /tmp/webbook.db\nrate_limiting:\n  requests_per_second: 0.5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path
	t.Setenv("THERMOBOOK_HTTP_TIMEOUT", "7s")
	t.Setenv("THERMOBOOK_ROBOTS_ENABLED", "false")

	initConfig()
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Store.Path != "/tmp/webbook.db" {
		t.Errorf("store path = %q, want file value", cfg.Store.Path)
	}
	if cfg.RateLimiting.RequestsPerSecond != 0.5 {
		t.Errorf("requests_per_second = %v, want 0.5", cfg.RateLimiting.RequestsPerSecond)
	}
	if cfg.HTTP.Timeout != 7*time.Second {
		t.Errorf("http timeout = %v, want env value 7s", cfg.HTTP.Timeout)
	}
	if cfg.Robots.Enabled {
		t.Error("robots should be disabled by env")
	}

	defaults := model.DefaultConfig()
	if cfg.Concurrency.Workers != defaults.Concurrency.Workers {
		t.Errorf("workers = %d, want default %d", cfg.Concurrency.Workers, defaults.Concurrency.Workers)
	}
	if cfg.Cache.DiskTTL != defaults.Cache.DiskTTL {
		t.Errorf("disk ttl = %v, want default %v", cfg.Cache.DiskTTL, defaults.Cache.DiskTTL)
	}
}

func TestFlatten(t *testing.T) {
	tree := map[string]any{
		"http": map[string]any{"timeout": "30s", "user_agent": "ua"},
		"site": map[string]any{"base_url": "https://example.com"},
	}
	got := flatten("", tree)

	want := map[string]any{
		"http.timeout":    "30s",
		"http.user_agent": "ua",
		"site.base_url":   "https://example.com",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if cfg.Site.BaseURL != model.DefaultBaseURL {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
	if cfg.Walk.Timeout != model.DefaultConfig().Walk.Timeout {
		t.Errorf("walk timeout = %v", cfg.Walk.Timeout)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestFetchFlagsApply(t *testing.T) {
	cfg := model.DefaultConfig()
	f := fetchFlags{userAgent: "probe/1.0", noCache: true, httpsProxy: "http://proxy:3128"}
	f.apply(cfg)

	if cfg.HTTP.UserAgent != "probe/1.0" {
		t.Errorf("user agent = %q", cfg.HTTP.UserAgent)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
	if cfg.HTTP.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("https proxy = %q", cfg.HTTP.HTTPSProxy)
	}
	if !cfg.Robots.Enabled {
		t.Error("robots should stay enabled")
	}
	if cfg.HTTP.Timeout != model.DefaultConfig().HTTP.Timeout {
		t.Errorf("timeout changed to %v", cfg.HTTP.Timeout)
	}
}
