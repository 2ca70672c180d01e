package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/depot/pkg/errors"
)

// SetValue sets a configuration value by key
// Supported keys:
//   - cache_dir, install_dir, packages_file: string paths
//   - http_timeout: duration (e.g. 30s)
//   - max_concurrent: int
//   - platform, configuration: string
//   - verify_hashes, color_output: bool
//   - log_level: string - Logging level (debug, info, warn, error)
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "cache_dir":
		c.Settings.CacheDir = value
	case "install_dir":
		c.Settings.InstallDir = value
	case "packages_file":
		c.Settings.PackagesFile = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s: %w", key, value, errors.ErrConfig)
		}
		c.Settings.HTTPTimeout = d
	case "max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s: %w", key, value, errors.ErrConfig)
		}
		c.Settings.MaxConcurrent = n
	case "platform":
		c.Settings.Platform = value
	case "configuration":
		c.Settings.Configuration = value
	case "verify_hashes":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s: %w", key, value, errors.ErrConfig)
		}
		c.Settings.VerifyHashes = &boolVal
	case "color_output":
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s: %w", key, value, errors.ErrConfig)
		}
		c.Settings.ColorOutput = boolVal
	case "log_level":
		c.Settings.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s: %w", key, errors.ErrConfig)
	}
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	values := c.ToMap()
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s: %w", key, errors.ErrConfig)
	}
	return v, nil
}

// ToMap returns the settings keyed by their YAML names.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		field := settingsType.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Handle yaml tags with options (e.g., "cache_dir,omitempty")
		yamlKey := strings.Split(yamlTag, ",")[0]
		result[yamlKey] = formatValue(settingsValue.Field(i))
	}
	return result
}

func formatValue(v reflect.Value) string {
	if d, ok := v.Interface().(time.Duration); ok {
		return d.String()
	}
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Pointer:
		if v.IsNil() {
			return ""
		}
		return formatValue(v.Elem())
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
