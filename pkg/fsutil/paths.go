package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the name of the application used in paths
const AppName = "depot"

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux: ~/.cache/depot/
// On macOS: ~/Library/Caches/depot/
// On Windows: %LocalAppData%\depot\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetDataDir returns the platform-specific data directory for the application.
// Outside of Windows and macOS it follows XDG_DATA_HOME with a ~/.local/share fallback.
func GetDataDir() (string, error) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// GetConfigPath returns the default configuration file path.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName, "config.yaml"), nil
}

// GetInstallDir returns the default directory packages are extracted into.
func GetInstallDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "installed"), nil
}
