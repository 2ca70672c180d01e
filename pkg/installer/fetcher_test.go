package installer_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	pkgerrors "github.com/glorpus-work/depot/pkg/errors"
	"github.com/glorpus-work/depot/pkg/installer"
	installermocks "github.com/glorpus-work/depot/pkg/installer/mocks"
	"github.com/glorpus-work/depot/pkg/model"
	"github.com/glorpus-work/depot/pkg/platform"
)

const bogusURL = "https://example.com/dl/bogus-0.1-linux64-1.tar.gz"

func newMockInstaller(t *testing.T, fetcher installer.Fetcher, opts ...installer.Option) *installer.Installer {
	t.Helper()
	opts = append([]installer.Option{installer.WithPlatform(platform.Linux64)}, opts...)
	inst, err := installer.New(t.TempDir(), fetcher, opts...)
	require.NoError(t, err)
	return inst
}

func TestInstallOne_UsesFetcher(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	local := buildArchive(t, t.TempDir(), "bogus-0.1-linux64-1.tar.gz", map[string]string{"lib/bogus.lib": "lib"})
	fetcher := installermocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Fetch(gomock.Any(), "bogus", bogusURL, "md5", "0123abcd").
		DoAndReturn(func(ctx context.Context, name, rawURL, algorithm, hash string) (string, error) {
			return local, nil
		}).
		Times(1)

	inst := newMockInstaller(t, fetcher)
	pkg := describe("bogus", "0.1", bogusURL, "0123abcd")
	require.NoError(t, inst.InstallOne(context.Background(), "bogus", pkg, installer.InstallOptions{VerifyHashes: true}))

	// Up to date: the fetcher must not be called again.
	require.NoError(t, inst.InstallOne(context.Background(), "bogus", pkg, installer.InstallOptions{VerifyHashes: true}))
	assert.Equal(t, "0.1", inst.Store().Get("bogus").PackageVersion())
}

func TestInstallOne_VerificationOffDropsHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	local := buildArchive(t, t.TempDir(), "bogus-0.1-linux64-1.tar.gz", map[string]string{"lib/bogus.lib": "lib"})
	fetcher := installermocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "bogus", bogusURL, "sha256", "").Return(local, nil).Times(1)

	inst := newMockInstaller(t, fetcher)
	pkg := describe("bogus", "0.1", bogusURL, "0123abcd")
	pd := pkg.Platforms[platform.Linux64]
	pd.Archive.HashAlgorithm = "SHA256"
	pkg.Platforms[platform.Linux64] = pd

	require.NoError(t, inst.InstallOne(context.Background(), "bogus", pkg, installer.InstallOptions{}))
}

func TestInstallOne_FetchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := installermocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Fetch(gomock.Any(), "bogus", gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("host down: %w", pkgerrors.ErrDownload)).
		Times(1)

	inst := newMockInstaller(t, fetcher)
	err := inst.InstallOne(context.Background(), "bogus", describe("bogus", "0.1", bogusURL, "abcd"), installer.InstallOptions{VerifyHashes: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrDownload)
	assert.False(t, inst.Store().Has("bogus"))
}

func TestInstall_PrefetchSkipsCurrentAndLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	bogus := buildArchive(t, t.TempDir(), "bogus-0.1-linux64-1.tar.gz", map[string]string{"lib/bogus.lib": "lib"})
	headers := buildArchive(t, t.TempDir(), "headers-1.0-linux64-1.tar.gz", map[string]string{"include/headers.h": "h"})
	headersURL := "https://example.com/dl/headers-1.0-linux64-1.tar.gz"

	fetcher := installermocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "bogus", bogusURL, "md5", "aa").Return(bogus, nil).Times(1)

	inst := newMockInstaller(t, fetcher, installer.WithConcurrency(4))
	packages := map[string]*model.PackageDescription{
		"bogus":   describe("bogus", "0.1", bogusURL, "aa"),
		"headers": describe("headers", "1.0", headersURL, "bb"),
	}
	opts := installer.InstallOptions{VerifyHashes: true, LocalOverrides: map[string]string{"headers": headers}}
	require.NoError(t, inst.Install(context.Background(), packages, []string{"bogus", "headers"}, opts))
	require.NoError(t, inst.Install(context.Background(), packages, []string{"bogus", "headers"}, opts))

	assert.Equal(t, model.InstallTypePackage, inst.Store().Get("bogus").InstallType)
	assert.Equal(t, model.InstallTypeLocal, inst.Store().Get("headers").InstallType)
}
