package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/archive"
	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/model"
)

// deriveMetadata reads the metadata embedded in the archive at path. Archives without
// it get a dirty record synthesized from sourceName, which must follow the canonical
// name-version-platform-buildid.<ext> pattern.
func deriveMetadata(ctx context.Context, path, sourceName string) (*model.MetadataDescription, error) {
	rc, found, err := archive.ReadEntry(ctx, path, archive.MetadataEntryName)
	if err != nil {
		return nil, err
	}
	if !found {
		cn, err := model.ParseCanonicalFilename(sourceName)
		if err != nil {
			return nil, fmt.Errorf("archive has no %s and its name cannot be parsed: %w", archive.MetadataEntryName, err)
		}
		logger.Warn("Archive carries no metadata, deriving it from the file name", logger.Fields{"file": sourceName})
		return cn.Synthesize(), nil
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", archive.MetadataEntryName, err)
	}
	var md model.MetadataDescription
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse %s in %s: %v: %w", archive.MetadataEntryName, sourceName, err, errors.ErrFormat)
	}
	if md.Name() == "" {
		return nil, fmt.Errorf("%s in %s names no package: %w", archive.MetadataEntryName, sourceName, errors.ErrConfig)
	}
	if md.Dependencies == nil {
		md.Dependencies = model.Dependencies{}
	}
	return &md, nil
}

// completeRecord fills the attributes the archive left out from the configured
// description and marks the record dirty when any descriptive field is still missing.
func completeRecord(md *model.MetadataDescription, pkg *model.PackageDescription, platformName, configuration string) {
	pd := md.PackageDescription
	if pd.License == "" {
		pd.License = pkg.License
	}
	if pd.LicenseFile == "" {
		pd.LicenseFile = pkg.LicenseFile
	}
	if pd.Copyright == "" {
		pd.Copyright = pkg.Copyright
	}
	if len(pd.Hooks) == 0 && len(pkg.Hooks) > 0 {
		pd.Hooks = pkg.DeepCopy().Hooks
	}
	if len(pd.Platforms) == 0 && len(pkg.Platforms) > 0 {
		pd.Platforms = pkg.DeepCopy().Platforms
	}
	if md.Platform == "" {
		md.Platform = platformName
	}
	if md.Configuration == "" {
		md.Configuration = configuration
	}
	if md.Version == "" {
		md.Version = model.MetadataFormatVersion
	}
	if md.Type == "" {
		md.Type = model.MetadataType
	}

	var missing []string
	if pd.Version == "" {
		missing = append(missing, "version")
	}
	if md.BuildID == "" {
		missing = append(missing, "build_id")
	}
	if md.Platform == "" {
		missing = append(missing, "platform")
	}
	if pd.Copyright == "" {
		missing = append(missing, "copyright")
	}
	if len(missing) > 0 {
		md.Dirty = true
		logger.Warn("Package metadata is incomplete", logger.Fields{
			"package": md.Name(),
			"missing": strings.Join(missing, ","),
		})
	}
}

// checkLicense requires a license string, a license file shipped in the archive, or a
// license file URL. An expression that is not valid SPDX is accepted with a warning.
func checkLicense(ctx context.Context, md *model.MetadataDescription, archivePath string) error {
	pd := md.PackageDescription
	if pd.License != "" {
		if ok, invalid := spdxexp.ValidateLicenses([]string{pd.License}); !ok {
			logger.Warn("License is not a known SPDX expression", logger.Fields{
				"package": md.Name(),
				"license": strings.Join(invalid, " "),
			})
		}
		return nil
	}

	if lf := pd.LicenseFile; lf != "" {
		if isHTTPURL(lf) {
			return nil
		}
		found, err := archive.Contains(ctx, archivePath, lf)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		return fmt.Errorf("%s: license file %q is neither in the archive nor an http(s) URL: %w",
			md.Name(), lf, errors.ErrLicense)
	}
	return fmt.Errorf("%s: neither license nor license_file is set: %w", md.Name(), errors.ErrLicense)
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
