// Package config loads the storeadmin CLI configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// AppName names the config directory and the default keychain service.
const AppName = "storeadmin"

// Environment variables overriding file values.
const (
	EnvAPIURL          = "STOREFORM_API_URL"
	EnvStoreID         = "STOREFORM_STORE_ID"
	EnvTimeout         = "STOREFORM_TIMEOUT"
	EnvKeychainService = "STOREFORM_KEYCHAIN_SERVICE"
	EnvSchemaDir       = "STOREFORM_SCHEMA_DIR"
	EnvRedirectDelay   = "STOREFORM_REDIRECT_DELAY"
	EnvLogLevel        = "STOREFORM_LOG_LEVEL"
)

// ErrMissingBaseURL is returned by Validate when no API base URL is set.
var ErrMissingBaseURL = errors.New("config: api base_url is not configured (set " + EnvAPIURL + ")")

// Config holds the CLI configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Forms   FormsConfig   `yaml:"forms"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig locates the dashboard backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	StoreID string `yaml:"store_id"`
	Timeout string `yaml:"timeout"`
}

// SessionConfig controls where the session is persisted.
type SessionConfig struct {
	KeychainService string `yaml:"keychain_service"`
}

// FormsConfig controls schema loading and post-save behavior.
type FormsConfig struct {
	// SchemaDir replaces the embedded entity schemas when set.
	SchemaDir string `yaml:"schema_dir"`
	// RedirectDelay is how long the success toast shows before navigating.
	// Zero keeps the user on the form.
	RedirectDelay string `yaml:"redirect_delay"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: "30s",
		},
		Session: SessionConfig{
			KeychainService: AppName,
		},
		Forms: FormsConfig{
			RedirectDelay: "2s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.config/storeadmin/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName, "config.yaml")
	}
	return filepath.Join(home, ".config", AppName, "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		EnvAPIURL:          &c.API.BaseURL,
		EnvStoreID:         &c.API.StoreID,
		EnvTimeout:         &c.API.Timeout,
		EnvKeychainService: &c.Session.KeychainService,
		EnvSchemaDir:       &c.Forms.SchemaDir,
		EnvRedirectDelay:   &c.Forms.RedirectDelay,
		EnvLogLevel:        &c.Logging.Level,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
}

// Validate checks the values the CLI cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid api base_url %q", c.API.BaseURL)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// GetTimeout returns the HTTP timeout, 30s when unset or invalid.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetRedirectDelay returns the post-save navigation delay. An unparsable
// value falls back to 2s; zero or negative disables navigation.
func (c *Config) GetRedirectDelay() time.Duration {
	d, err := time.ParseDuration(c.Forms.RedirectDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// LogLevel parses the configured zap level.
func (c *Config) LogLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("config: logging level: %w", err)
	}
	return level, nil
}
