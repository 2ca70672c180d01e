// Package model provides the record types the depot install engine operates on:
// package descriptions as configured, archive descriptors, and the installed-state
// metadata tree persisted per install directory.
package model

// PackageDescription is a named installable with one archive per supported platform.
type PackageDescription struct {
	Name        string                         `json:"name" yaml:"name"`
	Version     string                         `json:"version" yaml:"version"`
	License     string                         `json:"license,omitempty" yaml:"license,omitempty"`
	LicenseFile string                         `json:"license_file,omitempty" yaml:"license_file,omitempty"`
	Copyright   string                         `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	Platforms   map[string]PlatformDescription `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	// Hooks maps a hook type (post-install, pre-uninstall) to a tengo script.
	Hooks map[string]string `json:"hooks,omitempty" yaml:"hooks,omitempty"`
}

// PlatformDescription is the download descriptor and declared file patterns for one platform.
type PlatformDescription struct {
	Archive  ArchiveDescription `json:"archive" yaml:"archive"`
	Manifest []string           `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// DeepCopy returns an independent copy of the package description.
func (p *PackageDescription) DeepCopy() *PackageDescription {
	if p == nil {
		return nil
	}
	out := *p
	if p.Platforms != nil {
		out.Platforms = make(map[string]PlatformDescription, len(p.Platforms))
		for name, pd := range p.Platforms {
			pd.Manifest = append([]string(nil), pd.Manifest...)
			out.Platforms[name] = pd
		}
	}
	if p.Hooks != nil {
		out.Hooks = make(map[string]string, len(p.Hooks))
		for k, v := range p.Hooks {
			out.Hooks[k] = v
		}
	}
	return &out
}
