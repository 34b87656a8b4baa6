package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	Name     string        `yaml:"name" toml:"name"`
	Port     int           `yaml:"port" toml:"port"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
	Tags     []string      `yaml:"tags" toml:"tags"`
}

func (c *testConfig) Validate() error {
	if c.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_CONFIG_NAME", "vault")
	p := writeFile(t, "config.yaml", "name: ${TEST_CONFIG_NAME}\nport: 8080\ninterval: 500ms\ntags: [a, b]\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "vault" || cfg.Port != 8080 || cfg.Interval != 500*time.Millisecond || len(cfg.Tags) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Setenv("TEST_CONFIG_PORT", "9090")
	p := writeFile(t, "config.toml", "name = \"vault\"\nport = ${TEST_CONFIG_PORT}\ninterval = \"2s\"\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "vault" || cfg.Port != 9090 || cfg.Interval != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRunsValidation(t *testing.T) {
	p := writeFile(t, "config.yaml", "name: vault\n")

	var cfg testConfig
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadParseError(t *testing.T) {
	p := writeFile(t, "config.toml", "name = = broken\n")

	var cfg testConfig
	if err := Load(p, &cfg); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "default.yaml", "port: 1234\n")

	var cfg testConfig
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 1234 {
		t.Errorf("port = %d", cfg.Port)
	}

	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &cfg); err == nil {
		t.Error("expected error without default file")
	}
}

func TestMustLoadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLoad did not panic")
		}
	}()
	var cfg testConfig
	MustLoad(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
}
