package model

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/depot/pkg/errors"
)

// archiveExtensions lists the suffixes stripped before parsing a canonical filename,
// longest first.
var archiveExtensions = []string{".tar.bz2", ".tar.zst", ".tar.gz", ".tbz2", ".tgz", ".zip"}

// CanonicalName holds the fields encoded in a name-version-platform-buildid.ext filename.
type CanonicalName struct {
	Name     string
	Version  string
	Platform string
	BuildID  string
}

// ParseCanonicalFilename parses name-version-platform-buildid.<ext>. Fields are split
// from the right so the name itself may contain dashes.
func ParseCanonicalFilename(filename string) (CanonicalName, error) {
	base := URLBasename(filename)
	stem := base
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(strings.ToLower(stem), ext) {
			stem = stem[:len(stem)-len(ext)]
			break
		}
	}

	parts := strings.Split(stem, "-")
	if len(parts) < 4 {
		return CanonicalName{}, fmt.Errorf("%q is not of the form name-version-platform-buildid: %w", base, errors.ErrConfig)
	}
	n := len(parts)
	cn := CanonicalName{
		Name:     strings.Join(parts[:n-3], "-"),
		Version:  parts[n-3],
		Platform: parts[n-2],
		BuildID:  parts[n-1],
	}
	if cn.Name == "" || cn.Version == "" || cn.Platform == "" || cn.BuildID == "" {
		return CanonicalName{}, fmt.Errorf("%q has an empty field: %w", base, errors.ErrConfig)
	}
	return cn, nil
}

// Synthesize builds a dirty MetadataDescription for an archive without embedded metadata.
func (cn CanonicalName) Synthesize() *MetadataDescription {
	return &MetadataDescription{
		Version: MetadataFormatVersion,
		Type:    MetadataType,
		PackageDescription: &PackageDescription{
			Name:    cn.Name,
			Version: cn.Version,
		},
		BuildID:      cn.BuildID,
		Platform:     cn.Platform,
		Dependencies: Dependencies{},
		Dirty:        true,
	}
}
