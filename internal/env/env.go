package env

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daixian/dnetpkg/internal/requires"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/daixian/dnetpkg/recipe"
)

// WorkDir is the root of every directory dnetpkg manages by default.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".dnetpkg"), nil
}

// Key identifies one configuration of the package in directory names, e.g.
// "x86_64-Linux-gcc-Release_True-False-scripting-1a2b3c4d": settings,
// build_test, shared, the requirement profile and a digest of the
// dependency options.
func Key(s recipe.Settings, profile requires.Profile, opts recipe.Options) string {
	parts := []string{s.Arch, s.OS, s.Compiler, s.BuildType}
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, " ", "")
	}
	return fmt.Sprintf("%s_%s-%s-%s-%s",
		strings.Join(parts, "-"),
		recipe.FormatBool(opts.BuildTest), recipe.FormatBool(opts.Shared),
		profile, depsDigest(opts))
}

// depsDigest hashes the dep:key=value pairs, sorted by Pairs, so that any option
// value stays safe in a path.
func depsDigest(opts recipe.Options) string {
	var pairs []string
	for _, pair := range opts.Pairs() {
		if strings.Contains(pair, ":") {
			pairs = append(pairs, pair)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(sum[:4])
}

// PackageDir returns the default package directory of a configuration:
// <workdir>/packages/<escaped name>@<version>-<key>.
func PackageDir(s recipe.Settings, profile requires.Profile, opts recipe.Options) (string, error) {
	return keyedDir("packages", s, profile, opts)
}

// BuildDir returns the default native build directory of a configuration.
func BuildDir(s recipe.Settings, profile requires.Profile, opts recipe.Options) (string, error) {
	return keyedDir("build", s, profile, opts)
}

func keyedDir(kind string, s recipe.Settings, profile requires.Profile, opts recipe.Options) (string, error) {
	work, err := WorkDir()
	if err != nil {
		return "", err
	}
	escaped, err := module.EscapePath(recipe.Name)
	if err != nil {
		return "", err
	}
	return filepath.Join(work, kind, fmt.Sprintf("%s@%s-%s", escaped, recipe.Version, Key(s, profile, opts))), nil
}
