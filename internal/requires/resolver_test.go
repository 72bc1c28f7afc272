package requires

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/daixian/dnetpkg/pkgs/mod/versions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *versions.Versions {
	return &versions.Versions{Dependencies: map[string][]versions.Release{
		"dlog": {
			{Version: "2.5.3", Channel: "daixian/stable"},
			{Version: "2.6.0", Channel: "daixian/stable"},
			{Version: "2.7.4", Channel: "daixian/stable"},
			{Version: "3.0.0-beta", Channel: "daixian/stable"},
			{Version: "9.9.9", Channel: "daixian/testing"},
		},
		"xuexuesharp": {{Version: "0.0.16", Channel: "daixian/stable"}, {Version: "0.0.21", Channel: "daixian/stable"}},
		"xuexuejson": {
			{Version: "1.1.0", Channel: "daixian/stable"},
			{Version: "1.2.5", Channel: "daixian/stable"},
			{Version: "1.3.2", Channel: "daixian/stable"},
			{Version: "1.9.0"},
		},
		"gtest": {{Version: "1.8.1", Channel: "bincrafters/stable"}, {Version: "1.10.0", Channel: "bincrafters/stable"}},
		"poco":  {{Version: "not-semver", Channel: "pocoproject/stable"}},
	}}
}

func TestIndexResolver(t *testing.T) {
	r := &IndexResolver{Index: testIndex()}
	ctx := context.Background()

	t.Run("picks highest satisfying", func(t *testing.T) {
		reqs, err := For(ScriptingBinding, Verification)
		require.NoError(t, err)

		got, err := r.Resolve(ctx, reqs)
		require.NoError(t, err)
		assert.Equal(t, []module.Version{
			{Name: "dlog", Version: "2.7.4", Channel: "daixian/stable"},
			{Name: "xuexuesharp", Version: "0.0.21", Channel: "daixian/stable"},
			{Name: "xuexuejson", Version: "1.3.2", Channel: "daixian/stable"},
			{Name: "gtest", Version: "1.8.1", Channel: "bincrafters/stable"},
		}, got)
	})

	t.Run("missing dependency", func(t *testing.T) {
		_, err := r.Resolve(ctx, []module.Requirement{module.MustParse("zlib/[>=1.2.11]")})
		assert.True(t, errors.Is(err, ErrResolution), "got %v", err)
	})

	t.Run("no satisfying version", func(t *testing.T) {
		_, err := r.Resolve(ctx, []module.Requirement{module.MustParse("dlog/[>=4.0.0]@daixian/stable")})
		assert.True(t, errors.Is(err, ErrResolution), "got %v", err)
	})

	t.Run("release without channel does not satisfy a channel", func(t *testing.T) {
		got, err := r.Resolve(ctx, []module.Requirement{module.MustParse("xuexuejson/[>=1.3.0]@daixian/stable")})
		require.NoError(t, err)
		assert.Equal(t, "1.3.2", got[0].Version)

		got, err = r.Resolve(ctx, []module.Requirement{module.MustParse("xuexuejson/[>=1.3.0]")})
		require.NoError(t, err)
		assert.Equal(t, "1.9.0", got[0].Version)
	})

	t.Run("unparseable releases are ignored", func(t *testing.T) {
		reqs, err := For(PortabilityLib, Main)
		require.NoError(t, err)
		_, err = r.Resolve(ctx, reqs)
		assert.True(t, errors.Is(err, ErrResolution), "got %v", err)
	})

	t.Run("conflicting requirements fail before lookup", func(t *testing.T) {
		_, err := r.Resolve(ctx, []module.Requirement{
			module.MustParse("gtest/1.8.1@bincrafters/stable"),
			module.MustParse("gtest/1.10.0@bincrafters/stable"),
		})
		assert.True(t, errors.Is(err, ErrResolution), "got %v", err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Resolve(ctx, []module.Requirement{module.MustParse("gtest/1.8.1")})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewIndexResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "versions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"deps": {"gtest": [{"version": "1.8.1", "channel": "bincrafters/stable"}]}}`), 0o644))

	r, err := NewIndexResolver(path)
	require.NoError(t, err)
	got, err := r.Resolve(context.Background(), []module.Requirement{module.MustParse("gtest/1.8.1@bincrafters/stable")})
	require.NoError(t, err)
	assert.Equal(t, []module.Version{{Name: "gtest", Version: "1.8.1", Channel: "bincrafters/stable"}}, got)

	_, err = NewIndexResolver(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
