package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/model"
	"github.com/glorpus-work/depot/pkg/platform"
)

const packagesYAML = `packages:
  bogus:
    version: "0.1"
    license: MIT
    copyright: Bogus Corp
    platforms:
      linux64:
        archive:
          url: https://example.com/bogus-0.1-linux64-1.tar.gz
          hash: 0123abcd
        manifest:
          - lib/*
      common:
        archive:
          url: https://example.com/bogus-0.1-common-1.zip
          hash_algorithm: sha256
          format: zip
    hooks:
      post-install: |
        fmt := import("fmt")
  zlib:
    name: zlib
    version: "1.2.13"
    license_file: https://zlib.net/zlib_license.html
    platforms:
      win64:
        archive:
          url: https://example.com/zlib-1.2.13-win64-3.zip
`

func TestParsePackages(t *testing.T) {
	packages, err := ParsePackages([]byte(packagesYAML))
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, []string{"bogus", "zlib"}, PackageNames(packages))

	bogus := packages["bogus"]
	assert.Equal(t, "bogus", bogus.Name, "name defaults to the key")
	assert.Equal(t, "0.1", bogus.Version)
	assert.Equal(t, "MIT", bogus.License)
	assert.Equal(t, []string{"lib/*"}, bogus.Platforms[platform.Linux64].Manifest)
	assert.Equal(t, "0123abcd", bogus.Platforms[platform.Linux64].Archive.Hash)
	assert.Equal(t, "md5", bogus.Platforms[platform.Linux64].Archive.Algorithm())
	assert.Equal(t, "sha256", bogus.Platforms[platform.Common].Archive.Algorithm())
	assert.Equal(t, "zip", bogus.Platforms[platform.Common].Archive.Format)
	assert.Contains(t, bogus.Hooks["post-install"], "import")

	assert.Equal(t, "https://zlib.net/zlib_license.html", packages["zlib"].LicenseFile)
}

func TestParsePackages_Errors(t *testing.T) {
	tests := map[string]string{
		"malformed":     "packages: [",
		"name mismatch": "packages:\n  a:\n    name: b\n    platforms:\n      common:\n        archive:\n          url: https://x/a.zip\n",
		"no platforms":  "packages:\n  a:\n    version: \"1\"\n",
		"null entry":    "packages:\n  a:\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePackages([]byte(data))
			assert.ErrorIs(t, err, errors.ErrConfig)
		})
	}
}

func TestLoadAndSavePackages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps", "packages.yaml")
	packages := map[string]*model.PackageDescription{
		"bogus": {
			Name:    "bogus",
			Version: "0.2",
			License: "MIT",
			Platforms: map[string]model.PlatformDescription{
				platform.Linux64: {Archive: model.ArchiveDescription{URL: "https://example.com/bogus-0.2-linux64-1.tar.gz", Hash: "ff"}},
			},
		},
	}
	require.NoError(t, SavePackages(path, packages))

	loaded, err := LoadPackages(path)
	require.NoError(t, err)
	assert.Equal(t, packages, loaded)

	_, err = LoadPackages(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
