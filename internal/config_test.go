package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg = AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token: err = %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	if !cfg.Sync.Inline() {
		t.Error("default sync mode should be inline")
	}
}

func TestVaultConfig(t *testing.T) {
	tests := []struct {
		name       string
		namespaces []string
		wantErr    bool
	}{
		{"valid", []string{"alice", "bob-2"}, false},
		{"empty", nil, true},
		{"uppercase", []string{"Alice"}, true},
		{"traversal", []string{"../etc"}, true},
		{"duplicate", []string{"alice", "alice"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := VaultConfig{Path: "./vault", Namespaces: tt.namespaces}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDailyConfigLocation(t *testing.T) {
	cfg := DailyConfig{Dir: "daily", Timezone: "Europe/Berlin"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("location = %v, %v", loc, err)
	}

	cfg.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown timezone should fail validation")
	}

	cfg.Timezone = ""
	if loc, _ := cfg.Location(); loc != time.Local {
		t.Errorf("empty timezone = %v, want Local", loc)
	}
}

func TestSyncConfig(t *testing.T) {
	cfg := SyncConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled sync without remote should fail")
	}

	cfg = SyncConfig{Enabled: true, Remote: "origin", Mode: "background", Debounce: time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Inline() {
		t.Error("background mode reported inline")
	}

	cfg = SyncConfig{Mode: "sometimes"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestFullConfig_SectionErrorsArePrefixed(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Daily.Dir = ""
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "daily: ") {
		t.Errorf("err = %v", err)
	}

	cfg = NewDefaultConfig()
	cfg.Auth.Mode = "token"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
