package model

import "sort"

// MetadataFormatVersion is the schema version written into every MetadataDescription.
const MetadataFormatVersion = "1"

// MetadataType is the record type tag for installed-package records.
const MetadataType = "metadata"

// InstallType records where an installed archive came from.
type InstallType string

const (
	// InstallTypePackage is an archive fetched from its configured URL.
	InstallTypePackage InstallType = "package"
	// InstallTypeLocal is an archive taken from a local override file.
	InstallTypeLocal InstallType = "local"
)

// MetadataDescription is the installed-state record for one package, including the
// dependencies its archive was built against.
type MetadataDescription struct {
	Version            string              `json:"version"`
	Type               string              `json:"type"`
	PackageDescription *PackageDescription `json:"package_description,omitempty"`
	Archive            ArchiveDescription  `json:"archive"`
	Manifest           []string            `json:"manifest"`
	Dependencies       Dependencies        `json:"dependencies,omitempty"`
	BuildID            string              `json:"build_id,omitempty"`
	Platform           string              `json:"platform,omitempty"`
	Configuration      string              `json:"configuration,omitempty"`
	Dirty              bool                `json:"dirty"`
	InstallType        InstallType         `json:"install_type,omitempty"`
	InstallDir         string              `json:"install_dir,omitempty"`
}

// Name returns the package name recorded in the metadata.
func (m *MetadataDescription) Name() string {
	if m == nil || m.PackageDescription == nil {
		return ""
	}
	return m.PackageDescription.Name
}

// PackageVersion returns the package version recorded in the metadata.
func (m *MetadataDescription) PackageVersion() string {
	if m == nil || m.PackageDescription == nil {
		return ""
	}
	return m.PackageDescription.Version
}

// DeepCopy returns an independent copy of the record and its dependency subtree.
func (m *MetadataDescription) DeepCopy() *MetadataDescription {
	if m == nil {
		return nil
	}
	out := *m
	out.PackageDescription = m.PackageDescription.DeepCopy()
	if m.Manifest != nil {
		out.Manifest = append([]string(nil), m.Manifest...)
	}
	out.Dependencies = m.Dependencies.DeepCopy()
	return &out
}

// Dependencies maps package name to installed record. At the top level of an install
// directory it is the persisted installed-manifest.
type Dependencies map[string]*MetadataDescription

// DeepCopy returns an independent copy of the tree.
func (d Dependencies) DeepCopy() Dependencies {
	if d == nil {
		return nil
	}
	out := make(Dependencies, len(d))
	for name, md := range d {
		out[name] = md.DeepCopy()
	}
	return out
}

// Without returns a shallow copy of d lacking the named entry.
func (d Dependencies) Without(name string) Dependencies {
	out := make(Dependencies, len(d))
	for k, v := range d {
		if k != name {
			out[k] = v
		}
	}
	return out
}

// Names returns the entry names in sorted order.
func (d Dependencies) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
