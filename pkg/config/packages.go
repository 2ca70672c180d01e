package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/fsutil"
	"github.com/glorpus-work/depot/pkg/model"
)

// PackagesFile is the on-disk set of installable package descriptions.
type PackagesFile struct {
	Packages map[string]*model.PackageDescription `yaml:"packages"`
}

// LoadPackages reads package descriptions from a YAML file. A description without a
// name takes its key; one whose name disagrees with its key is rejected.
func LoadPackages(path string) (map[string]*model.PackageDescription, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read package descriptions %s", path)
	}
	return ParsePackages(data)
}

// ParsePackages decodes package descriptions from YAML.
func ParsePackages(data []byte) (map[string]*model.PackageDescription, error) {
	var file PackagesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v: %w", errors.ErrConfigParse, err, errors.ErrConfig)
	}

	packages := make(map[string]*model.PackageDescription, len(file.Packages))
	for name, pkg := range file.Packages {
		if pkg == nil {
			return nil, fmt.Errorf("package %q has no description: %w", name, errors.ErrConfig)
		}
		if pkg.Name == "" {
			pkg.Name = name
		}
		if pkg.Name != name {
			return nil, fmt.Errorf("package %q is named %q: %w", name, pkg.Name, errors.ErrConfig)
		}
		if len(pkg.Platforms) == 0 {
			return nil, fmt.Errorf("package %q has no platforms: %w", name, errors.ErrConfig)
		}
		packages[name] = pkg
	}
	return packages, nil
}

// SavePackages writes package descriptions as YAML.
func SavePackages(path string, packages map[string]*model.PackageDescription) error {
	data, err := yaml.Marshal(PackagesFile{Packages: packages})
	if err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if err := fsutil.EnsureFileDir(path); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}
	return os.WriteFile(path, data, fsutil.FileModeDefault)
}

// PackageNames returns the names of packages in sorted order.
func PackageNames(packages map[string]*model.PackageDescription) []string {
	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
