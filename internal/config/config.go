package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Remote contains configuration for the upstream read API used as the
// preferred data source for expiring deadlines.
type Remote struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	RequestTimeout int    `toml:"request_timeout"`
	TokenTTL       int    `toml:"token_ttl"`
}

// Messaging contains configuration for the Telegram bot transport that
// delivers reminders. An empty bot token disables delivery.
type Messaging struct {
	BotToken       string `toml:"bot_token"`
	APIBase        string `toml:"api_base"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Dispatch contains reminder targeting configuration.
type Dispatch struct {
	// Thresholds lists the days-before-expiration values checked on each
	// pass, in the order they are processed (e.g. [14, 7, 3]).
	Thresholds       []int    `toml:"thresholds"`
	IncludeOperators bool     `toml:"include_operators"`
	OperatorChannels []string `toml:"operator_channels"`
	IncludeExpired   bool     `toml:"include_expired"`
}

// Schedule contains the daily trigger configuration.
type Schedule struct {
	CheckTime     string `toml:"check_time"`
	Timezone      string `toml:"timezone"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryDelay    int    `toml:"retry_delay"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for duewatch.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the embedded API bind address
//   - Remote: upstream read API (preferred source, bearer auth)
//   - Messaging: Telegram bot transport for reminders
//   - Dispatch: day thresholds and recipient targeting
//   - Schedule: daily check time, timezone, and retry policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Remote    Remote    `toml:"remote"`
	Messaging Messaging `toml:"messaging"`
	Dispatch  Dispatch  `toml:"dispatch"`
	Schedule  Schedule  `toml:"schedule"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/duewatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("duewatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the deadline database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "duewatch.db")
}

// LogPath returns the location of the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "duewatch.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
