// Package errors defines the error taxonomy shared by the depot install engine.
//
// Every failure surfaced by the engine wraps exactly one of the kind sentinels
// (ErrDownload, ErrIntegrity, ErrFormat, ErrConflict, ErrLicense, ErrConfig) so that
// callers can classify it with errors.Is regardless of how much context was added.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Error kinds.
var (
	// ErrDownload is a network or transport failure.
	ErrDownload = fmt.Errorf("download failed")
	// ErrIntegrity is a hash mismatch or a zero-length cache artifact.
	ErrIntegrity = fmt.Errorf("integrity check failed")
	// ErrFormat is an unrecognized or corrupt archive.
	ErrFormat = fmt.Errorf("unsupported or corrupt archive")
	// ErrConflict is an incompatible installed package or a file path collision.
	ErrConflict = fmt.Errorf("conflict")
	// ErrLicense is a package without a resolvable license.
	ErrLicense = fmt.Errorf("no usable license")
	// ErrConfig is a malformed or self-contradictory package description.
	ErrConfig = fmt.Errorf("invalid configuration")
)

// Config file errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("config file already exists")
)

// Misc errors.
var (
	ErrInvalidPath    = fmt.Errorf("invalid path")
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")
	ErrUnknownPackage = fmt.Errorf("unknown package")
)

// PathConflictError reports every archive member whose target already exists in
// the install directory. It wraps ErrConflict.
type PathConflictError struct {
	Dir   string
	Paths []string
}

// NewPathConflictError creates a PathConflictError with the paths sorted.
func NewPathConflictError(dir string, paths []string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return &PathConflictError{Dir: dir, Paths: sorted}
}

// Error implements the error interface for PathConflictError.
func (e *PathConflictError) Error() string {
	return fmt.Sprintf("%s: %d file(s) already exist in %s:\n  %s",
		ErrConflict, len(e.Paths), e.Dir, strings.Join(e.Paths, "\n  "))
}

// Unwrap returns ErrConflict.
func (e *PathConflictError) Unwrap() error {
	return ErrConflict
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
