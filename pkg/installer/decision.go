package installer

import (
	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/depot/internal/logger"
	"github.com/glorpus-work/depot/pkg/model"
)

// Decision is the outcome of comparing a candidate with the installed record.
type Decision int

const (
	// Fresh means nothing of that name is installed.
	Fresh Decision = iota
	// Replace means a different version or build is installed and must be removed first.
	Replace
	// Current means the same version and build are already installed.
	Current
)

func (d Decision) String() string {
	switch d {
	case Fresh:
		return "fresh"
	case Replace:
		return "replace"
	case Current:
		return "current"
	default:
		return "unknown"
	}
}

// NeedsInstall compares the version and build_id of candidate with installed.
func NeedsInstall(candidate, installed *model.MetadataDescription) Decision {
	if installed == nil {
		return Fresh
	}
	if candidate.PackageVersion() == installed.PackageVersion() && candidate.BuildID == installed.BuildID {
		return Current
	}

	fields := logger.Fields{
		"package":   candidate.Name(),
		"installed": installed.PackageVersion(),
		"requested": candidate.PackageVersion(),
	}
	logger.Info("Replacing installed version ("+direction(installed.PackageVersion(), candidate.PackageVersion())+")", fields)
	return Replace
}

// direction names the kind of change from one version to another. Versions that do
// not parse are reported as a plain change.
func direction(from, to string) string {
	old, err := version.NewVersion(from)
	if err != nil {
		return "change"
	}
	requested, err := version.NewVersion(to)
	if err != nil {
		return "change"
	}
	switch {
	case requested.GreaterThan(old):
		return "upgrade"
	case requested.LessThan(old):
		return "downgrade"
	default:
		return "rebuild"
	}
}
