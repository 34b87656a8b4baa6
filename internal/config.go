package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Sync modes.
const (
	SyncModeInline     = "inline"
	SyncModeBackground = "background"
)

var namespaceRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app" toml:"app"`
	Vault VaultConfig       `yaml:"vault" toml:"vault"`
	Daily DailyConfig       `yaml:"daily" toml:"daily"`
	Sync  SyncConfig        `yaml:"sync" toml:"sync"`
	Auth  AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Vault.Validate(); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	if err := c.Daily.Validate(); err != nil {
		return fmt.Errorf("daily: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level    `yaml:"log_level" toml:"log_level"`
	LogFile  LogFileConfig `yaml:"log_file" toml:"log_file"`
	HTTP     HTTPConfig    `yaml:"http" toml:"http"`
	CORS     CORSConfig    `yaml:"cors" toml:"cors"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.LogFile.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LogFileConfig configures an optional rotated log file written next to
// stdout. An empty Path disables it.
type LogFileConfig struct {
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// Validate validates the log file configuration.
func (c *LogFileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CORSConfig lists the origins allowed to call the API from a browser.
// Empty means any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

// VaultConfig describes the vault directory and the people sharing it.
// Each namespace is a subdirectory of Path.
type VaultConfig struct {
	Path       string   `yaml:"path" toml:"path"`
	Namespaces []string `yaml:"namespaces" toml:"namespaces"`
	Ignore     []string `yaml:"ignore" toml:"ignore"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Namespaces, validation.Required,
			validation.Each(validation.Required, validation.Match(namespaceRe))),
	); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		if seen[ns] {
			return fmt.Errorf("namespaces: duplicate %q", ns)
		}
		seen[ns] = true
	}
	return nil
}

// DailyConfig configures the daily notes.
type DailyConfig struct {
	Dir        string   `yaml:"dir" toml:"dir"`
	Timezone   string   `yaml:"timezone" toml:"timezone"`
	Categories []string `yaml:"categories" toml:"categories"`
}

// Validate validates the daily configuration.
func (c *DailyConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Categories, validation.Each(validation.Required)),
	); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone that decides what "today" is. An empty
// Timezone means the local zone.
func (c *DailyConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// SyncConfig configures git synchronization of the vault.
//
// Mode controls where commits happen:
//   - "inline" (default): commit and push on the request path.
//   - "background": queue commits and push them after Debounce.
type SyncConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	Mode            string        `yaml:"mode" toml:"mode"`
	Remote          string        `yaml:"remote" toml:"remote"`
	CommandTimeout  time.Duration `yaml:"command_timeout" toml:"command_timeout"`
	Debounce        time.Duration `yaml:"debounce" toml:"debounce"`
	MinPullInterval time.Duration `yaml:"min_pull_interval" toml:"min_pull_interval"`
	AuthorName      string        `yaml:"author_name" toml:"author_name"`
	AuthorEmail     string        `yaml:"author_email" toml:"author_email"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = SyncModeInline
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(SyncModeInline, SyncModeBackground)),
		validation.Field(&c.Remote, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.CommandTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.MinPullInterval, validation.Min(time.Duration(0))),
	)
}

// Inline reports whether commits run on the request path.
func (c *SyncConfig) Inline() bool {
	return c.Mode != SyncModeBackground
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			LogFile: LogFileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:       "./vault",
			Namespaces: []string{"sebastian", "petra"},
		},
		Daily: DailyConfig{
			Dir:        "daily",
			Categories: []string{"work", "private"},
		},
		Sync: SyncConfig{
			Enabled:         false,
			Mode:            SyncModeInline,
			Remote:          "origin",
			CommandTimeout:  30 * time.Second,
			Debounce:        500 * time.Millisecond,
			MinPullInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
