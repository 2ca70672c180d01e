// Package platform names build platforms and resolves a package's archive for one of
// them through the fallback chain exact name, 32-bit base, "common".
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/model"
)

// Platform represents a target platform with OS and Architecture
type Platform struct {
	OS   string `yaml:"os" json:"os"`
	Arch string `yaml:"arch" json:"arch"`
}

// CurrentPlatform returns the current platform (OS and architecture)
func CurrentPlatform() Platform {
	return Platform{
		OS:   NormalizeOS(runtime.GOOS),
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

// String returns a string representation of the platform
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// Is64Bit reports whether the architecture is a 64-bit one.
func (p Platform) Is64Bit() bool {
	return p.Arch == ArchAMD64 || p.Arch == ArchARM64 || strings.HasSuffix(p.Arch, "64")
}

// Name returns the depot platform name (linux64, win32, ...) for p.
func (p Platform) Name() string {
	switch p.OS {
	case OSWindows:
		if p.Is64Bit() {
			return Windows64
		}
		return Windows32
	case OSDarwin:
		return MacOS64
	case OSLinux:
		if p.Is64Bit() {
			return Linux64
		}
		return Linux32
	default:
		if p.Is64Bit() {
			return p.OS + "64"
		}
		return p.OS
	}
}

// CurrentName returns the platform name of the running host.
func CurrentName() string {
	return CurrentPlatform().Name()
}

// NormalizeOS normalizes OS names to a common format
func NormalizeOS(os string) string {
	os = strings.ToLower(os)
	switch os {
	case "darwin", "macos", "osx":
		return OSDarwin
	case "win", "windows":
		return OSWindows
	default:
		return os
	}
}

// NormalizeArch normalizes architecture names to a common format
func NormalizeArch(arch string) string {
	arch = strings.ToLower(arch)
	switch arch {
	case "x86_64", "x64":
		return ArchAMD64
	case "x86", "i386", "i686":
		return Arch386
	case "aarch64":
		return ArchARM64
	default:
		return arch
	}
}

// Base returns the 32-bit base of a 64-bit platform name, or "" if name is not a
// 64-bit variant.
func Base(name string) string {
	switch name {
	case Windows64:
		return Windows32
	case MacOS64:
		return ""
	}
	if strings.HasSuffix(name, "64") && len(name) > 2 {
		return strings.TrimSuffix(name, "64")
	}
	return ""
}

// Candidates returns the lookup order for name: the name itself, its 32-bit base
// when name is a 64-bit variant, then Common.
func Candidates(name string) []string {
	out := []string{name}
	if base := Base(name); base != "" {
		out = append(out, base)
	}
	if name != Common {
		out = append(out, Common)
	}
	return out
}

// Resolve picks the PlatformDescription of pkg for the named platform using the
// fallback chain. It returns the platform name that matched.
func Resolve(pkg *model.PackageDescription, name string) (model.PlatformDescription, string, error) {
	if pkg == nil {
		return model.PlatformDescription{}, "", fmt.Errorf("nil package description: %w", errors.ErrConfig)
	}
	for _, candidate := range Candidates(name) {
		if pd, ok := pkg.Platforms[candidate]; ok {
			return pd, candidate, nil
		}
	}
	return model.PlatformDescription{}, "", fmt.Errorf("package %s has no archive for platform %s (tried %s): %w",
		pkg.Name, name, strings.Join(Candidates(name), ", "), errors.ErrConfig)
}
