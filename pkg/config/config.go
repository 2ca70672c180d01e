// Package config provides configuration management for depot.
// It loads the YAML settings file, fills in defaults, validates the result, and
// loads the package descriptions the installer works from.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/platform"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Directories
	CacheDir     string `yaml:"cache_dir,omitempty"`
	InstallDir   string `yaml:"install_dir,omitempty"`
	PackagesFile string `yaml:"packages_file,omitempty"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`

	// Build settings
	Platform      string `yaml:"platform,omitempty"` // linux64, win32, ... empty means the host
	Configuration string `yaml:"configuration,omitempty"`

	// VerifyHashes turns archive hash verification on or off. Unset means on.
	VerifyHashes *bool `yaml:"verify_hashes,omitempty"`

	// Output settings
	LogLevel    string `yaml:"log_level"` // debug, info, warn, error
	ColorOutput bool   `yaml:"color_output"`
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 60 * time.Second

	// DefaultMaxConcurrent is the default maximum number of concurrent downloads.
	DefaultMaxConcurrent = 4

	// DefaultPackagesFileName is the package description file next to the config file.
	DefaultPackagesFileName = "packages.yaml"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName, "cache")
	}
	installDir, err := fsutil.GetInstallDir()
	if err != nil {
		installDir = filepath.Join(os.TempDir(), fsutil.AppName, "installed")
	}
	packagesFile := DefaultPackagesFileName
	if configPath, err := fsutil.GetConfigPath(); err == nil {
		packagesFile = filepath.Join(filepath.Dir(configPath), DefaultPackagesFileName)
	}
	verify := true

	return &Config{
		Settings: Settings{
			CacheDir:      cacheDir,
			InstallDir:    installDir,
			PackagesFile:  packagesFile,
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			Platform:      platform.CurrentName(),
			VerifyHashes:  &verify,
			LogLevel:      "info",
			ColorOutput:   true,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", errors.ErrConfigParse, err, errors.ErrConfig)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a file through a temporary file and a rename.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid. Every failure wraps ErrConfig.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("nil config: %w", errors.ErrConfig)
	}
	s := c.Settings
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative: %w", errors.ErrConfig)
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d: %w", s.MaxConcurrent, errors.ErrConfig)
	}
	if s.Platform == "" || strings.ContainsAny(s.Platform, `/\ `) {
		return fmt.Errorf("invalid platform %q: %w", s.Platform, errors.ErrConfig)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error): %w", s.LogLevel, errors.ErrConfig)
	}
	return nil
}

// Verify reports whether archive hashes are checked.
func (s Settings) Verify() bool {
	return s.VerifyHashes == nil || *s.VerifyHashes
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.InstallDir == "" {
		c.Settings.InstallDir = defaults.Settings.InstallDir
	}
	if c.Settings.PackagesFile == "" {
		c.Settings.PackagesFile = defaults.Settings.PackagesFile
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.Platform == "" {
		c.Settings.Platform = defaults.Settings.Platform
	}
	if c.Settings.VerifyHashes == nil {
		c.Settings.VerifyHashes = defaults.Settings.VerifyHashes
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
