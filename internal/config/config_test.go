package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/requires"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "scripting", c.Profile)
	assert.Equal(t, ".", c.SourceDir)
	assert.Empty(t, c.BuildDir)
	assert.Empty(t, c.Toolchain)
	assert.Equal(t, "versions.json", c.Index)
	assert.Equal(t, recipe.HostSettings(), c.Settings)

	opts, err := c.RecipeOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, recipe.DefaultOptions(), opts)

	p, err := c.ProfileValue()
	require.NoError(t, err)
	assert.Equal(t, requires.ScriptingBinding, p)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
profile = "portability"
source_dir = "/src/DNET2"
package_dir = "/out/dnet"
cmake_args = "-G Ninja"
toolchain = "/ndk/build/cmake/android.toolchain.cmake"

[settings]
os = "Android"
arch = "armv8"
compiler = "clang"
build_type = "Debug"

[options]
shared = true
build_test = "False"
"dlog:shared" = "True"
`)

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/src/DNET2", c.SourceDir)
	assert.Equal(t, "/out/dnet", c.PackageDir)
	assert.Empty(t, c.BuildDir)
	assert.Equal(t, "-G Ninja", c.CMakeArgs)
	assert.Equal(t, "/ndk/build/cmake/android.toolchain.cmake", c.Toolchain)

	s, err := c.RecipeSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, recipe.Settings{OS: "Android", Compiler: "clang", Arch: "armv8", BuildType: "Debug"}, s)

	opts, err := c.RecipeOptions(nil)
	require.NoError(t, err)
	assert.True(t, opts.Shared)
	assert.False(t, opts.BuildTest)
	assert.Equal(t, map[string]string{"shared": "True"}, opts.DepOptions("dlog"))

	p, err := c.ProfileValue()
	require.NoError(t, err)
	assert.Equal(t, requires.PortabilityLib, p)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
profile = "portability"

[settings]
os = "Linux"
`)
	t.Setenv("DNET_PROFILE", "scripting")
	t.Setenv("DNET_SETTINGS_OS", "iOS")

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "scripting", c.Profile)
	assert.Equal(t, "iOS", c.Settings.OS)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(New(), filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(New(), writeConfig(t, "profile = \n"))
		assert.Error(t, err)
	})

	t.Run("bad option value", func(t *testing.T) {
		c, err := Load(New(), writeConfig(t, "[options]\nshared = \"maybe\"\n"))
		require.NoError(t, err)
		_, err = c.RecipeOptions(nil)
		assert.True(t, errors.Is(err, recipe.ErrConfiguration), "got %v", err)
	})

	t.Run("unknown setting value", func(t *testing.T) {
		c, err := Load(New(), writeConfig(t, "[settings]\nbuild_type = \"Fast\"\n"))
		require.NoError(t, err)
		_, err = c.RecipeSettings(nil)
		assert.True(t, errors.Is(err, recipe.ErrConfiguration), "got %v", err)
	})

	t.Run("unknown profile", func(t *testing.T) {
		c := &Config{Profile: "desktop"}
		_, err := c.ProfileValue()
		assert.True(t, errors.Is(err, recipe.ErrConfiguration), "got %v", err)
	})
}

func TestOverrides(t *testing.T) {
	c, err := Load(New(), writeConfig(t, `
[settings]
os = "Android"
arch = "armv8"
compiler = "clang"
build_type = "Fast"

[options]
shared = "maybe"
`))
	require.NoError(t, err)

	// Overrides are applied before validation.
	s, err := c.RecipeSettings([]string{"build_type=Release", "os=Linux", "compiler=gcc", "arch=x86_64"})
	require.NoError(t, err)
	assert.Equal(t, recipe.Settings{OS: "Linux", Compiler: "gcc", Arch: "x86_64", BuildType: "Release"}, s)

	_, err = c.RecipeSettings([]string{"os=Plan9"})
	assert.True(t, errors.Is(err, recipe.ErrConfiguration), "got %v", err)

	// Config options are parsed before the overrides.
	_, err = c.RecipeOptions([]string{"shared=True"})
	assert.True(t, errors.Is(err, recipe.ErrConfiguration), "got %v", err)

	c.Options = map[string]string{"shared": "False", "dlog:shared": "False"}
	opts, err := c.RecipeOptions([]string{"shared=True", "dlog:shared=True"})
	require.NoError(t, err)
	assert.True(t, opts.Shared)
	assert.Equal(t, "True", opts.DepOptions("dlog")["shared"])
}

func TestOptionPairs(t *testing.T) {
	c := &Config{Options: map[string]string{"shared": "1", "dlog:shared": "0"}}
	assert.Equal(t, []string{"dlog:shared=0", "shared=1"}, c.OptionPairs())
}
