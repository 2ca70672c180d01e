package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "extracting bogus"))
	assert.NoError(t, Wrapf(nil, "package %s", "bogus"))

	tests := map[string]struct {
		err  error
		want string
	}{
		"download":  {Wrap(ErrDownload, "fetching https://example.com/bogus.zip"), "fetching https://example.com/bogus.zip: download failed"},
		"integrity": {Wrapf(ErrIntegrity, "archive %s", "bogus-0.1-linux64-1.tar.gz"), "archive bogus-0.1-linux64-1.tar.gz: integrity check failed"},
		"format":    {Wrapf(ErrFormat, "%s has %d members", "bogus.rar", 3), "bogus.rar has 3 members: unsupported or corrupt archive"},
		"license":   {Wrap(ErrLicense, ""), ": no usable license"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindsSurviveWrapping(t *testing.T) {
	for _, kind := range []error{ErrDownload, ErrIntegrity, ErrFormat, ErrConflict, ErrLicense, ErrConfig} {
		t.Run(kind.Error(), func(t *testing.T) {
			wrapped := Wrapf(Wrap(kind, "inner"), "package %s", "bogus")
			assert.ErrorIs(t, wrapped, kind)
			for _, other := range []error{ErrDownload, ErrIntegrity, ErrFormat, ErrConflict, ErrLicense, ErrConfig} {
				if other != kind {
					assert.NotErrorIs(t, wrapped, other)
				}
			}
		})
	}
}

func TestPathConflictError(t *testing.T) {
	err := NewPathConflictError("/opt/deps", []string{"lib/z.lib", "include/a.h"})
	assert.ErrorIs(t, err, ErrConflict)

	var pce *PathConflictError
	require.True(t, errors.As(Wrap(err, "installing bogus"), &pce))
	assert.Equal(t, []string{"include/a.h", "lib/z.lib"}, pce.Paths)

	for _, want := range []string{"2 file(s)", "/opt/deps", "include/a.h", "lib/z.lib"} {
		assert.Contains(t, err.Error(), want)
	}
}
