package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "BERTH_TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "BERTH_TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      int
		expected int
	}{
		{name: "valid integer", value: "42", def: 1, expected: 42},
		{name: "invalid integer uses default", value: "forty", def: 7, expected: 7},
		{name: "missing variable uses default", value: "", def: 9, expected: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BERTH_TEST_INT", tt.value)
			if got := getenvInt("BERTH_TEST_INT", tt.def); got != tt.expected {
				t.Errorf("getenvInt() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BERTH_CATALOG_FILE", "/etc/berth/services.yaml")

	cfg := Load()

	if cfg.ListenPort != ":5000" {
		t.Errorf("ListenPort = %q", cfg.ListenPort)
	}
	if cfg.RegistryBackend != BackendFile {
		t.Errorf("RegistryBackend = %q, want %q", cfg.RegistryBackend, BackendFile)
	}
	if cfg.ProjectDir != "/etc/berth" {
		t.Errorf("ProjectDir = %q, want the catalog directory", cfg.ProjectDir)
	}
	if cfg.WebBasePort != 3000 || cfg.WebContainerPort != 3000 {
		t.Errorf("web ports = %d/%d", cfg.WebBasePort, cfg.WebContainerPort)
	}
	if cfg.PullTimeout != 300*time.Second || cfg.CreateTimeout != 120*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.PullTimeout, cfg.CreateTimeout)
	}
	if cfg.StatusSweepInterval != 0 {
		t.Errorf("sweeper should be disabled by default, interval = %v", cfg.StatusSweepInterval)
	}
	if cfg.WriteTimeout < cfg.PullTimeout+cfg.CreateTimeout {
		t.Errorf("WriteTimeout %v does not cover pull + create", cfg.WriteTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BERTH_PROJECT_DIR", "/srv/project")
	t.Setenv("BERTH_REGISTRY_BACKEND", "SQLite")
	t.Setenv("BERTH_WEB_BASE_PORT", "4100")
	t.Setenv("BERTH_SETTLE_INTERVAL", "0s")

	cfg := Load()

	if cfg.ProjectDir != "/srv/project" {
		t.Errorf("ProjectDir = %q", cfg.ProjectDir)
	}
	if cfg.RegistryBackend != BackendSQLite {
		t.Errorf("RegistryBackend = %q", cfg.RegistryBackend)
	}
	if cfg.WebBasePort != 4100 {
		t.Errorf("WebBasePort = %d", cfg.WebBasePort)
	}
	if cfg.SettleInterval != 0 {
		t.Errorf("SettleInterval = %v", cfg.SettleInterval)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"BERTH_REGISTRY_BACKEND": "etcd"}},
		{name: "redis without address", env: map[string]string{"BERTH_REGISTRY_BACKEND": "redis"}},
		{name: "redis password required", env: map[string]string{
			"BERTH_REGISTRY_BACKEND":        "redis",
			"BERTH_REDIS_ADDR":              "localhost:6379",
			"BERTH_REDIS_PASSWORD_REQUIRED": "true",
		}},
		{name: "port out of range", env: map[string]string{"BERTH_WEB_BASE_PORT": "70000"}},
		{name: "zero pull timeout", env: map[string]string{"BERTH_PULL_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BERTH_REDIS_ADDR", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("Load() should have panicked")
				}
			}()
			Load()
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{RedisUser: "admin", RedisPassword: "hunter2", RedisAddr: "cache:6379"}

	got := cfg.Redacted()
	if got.RedisPassword == "hunter2" || got.RedisUser == "admin" {
		t.Errorf("credentials leaked: %+v", got)
	}
	if got.RedisAddr != "cache:6379" {
		t.Errorf("RedisAddr = %q", got.RedisAddr)
	}
	if cfg.RedisPassword != "hunter2" {
		t.Errorf("Redacted modified the receiver")
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}
