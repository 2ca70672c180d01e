package cli

import (
	"fmt"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/cache"
	"github.com/glorpus-work/depot/pkg/config"
	"github.com/glorpus-work/depot/pkg/download"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/installer"
	"github.com/glorpus-work/depot/pkg/model"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

var noEvents = installer.Events{}

// loadConfig loads the configuration and applies the global flags to it.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if NoColor != nil && *NoColor {
		cfg.Settings.ColorOutput = false
	}
	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level, !cfg.Settings.ColorOutput)
	setColor(cfg.Settings.ColorOutput)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := fsutil.GetConfigPath()
	if err != nil {
		// An empty path fails with a descriptive error once the file is read.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}

func newCache(cfg *config.Config) *cache.Cache {
	return cache.New(cfg.Settings.CacheDir,
		cache.WithDownloader(download.NewManager(cfg.Settings.HTTPTimeout, "")),
		cache.WithVerification(cfg.Settings.Verify()),
	)
}

func newInstaller(cfg *config.Config, installDir string, events installer.Events) (*installer.Installer, error) {
	if installDir == "" {
		installDir = cfg.Settings.InstallDir
	}
	return installer.New(installDir, newCache(cfg),
		installer.WithPlatform(cfg.Settings.Platform),
		installer.WithConfiguration(cfg.Settings.Configuration),
		installer.WithConcurrency(cfg.Settings.MaxConcurrent),
		installer.WithEvents(events),
	)
}

func loadPackages(cfg *config.Config, path string) (map[string]*model.PackageDescription, error) {
	if path == "" {
		path = cfg.Settings.PackagesFile
	}
	packages, err := config.LoadPackages(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load package descriptions: %w", err)
	}
	return packages, nil
}
