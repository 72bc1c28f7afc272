// Package configure translates target settings and package options into
// the definitions passed to the native build system.
//
// Platform policy is data: each operating system maps to one category and
// each category to one shared-library policy, so Android and iOS can never
// both apply to the same build.
package configure

import (
	"fmt"
	"maps"
	"slices"

	"github.com/daixian/dnetpkg/recipe"
)

// CMake definition keys understood by the dnet sources.
const (
	KeyShared = "DNET_BUILD_SHARED"
	KeyTests  = "DNET_BUILD_TESTS"
)

// Category groups operating systems that share a packaging policy.
type Category int

const (
	Other Category = iota
	Android
	IOS
)

func (c Category) String() string {
	switch c {
	case Android:
		return "Android"
	case IOS:
		return "iOS"
	}
	return "Other"
}

// SharedPolicy decides the shared/static output of a category.
type SharedPolicy int

const (
	// FollowOption uses the user's shared option verbatim.
	FollowOption SharedPolicy = iota
	// ForceShared always builds a dynamic library.
	ForceShared
	// ForceStatic always builds a static library.
	ForceStatic
)

var (
	categories = map[string]Category{
		recipe.Android: Android,
		recipe.IOS:     IOS,
	}

	// Android packaging needs a .so the app can load; iOS distribution is
	// static only.
	sharedPolicies = map[Category]SharedPolicy{
		Android: ForceShared,
		IOS:     ForceStatic,
		Other:   FollowOption,
	}
)

// CategoryOf returns the platform category of an operating system.
func CategoryOf(os string) Category {
	return categories[os]
}

// PolicyOf returns the shared-library policy of a category.
func PolicyOf(c Category) SharedPolicy {
	return sharedPolicies[c]
}

// Definitions is the build-system directive set of one build. A struct
// rather than a map, so exactly one shared/static decision exists.
type Definitions struct {
	Shared bool
	Tests  bool
}

// Configure derives the definitions for settings and options. It is a pure
// total function: settings are not validated here.
func Configure(settings recipe.Settings, opts recipe.Options) Definitions {
	var shared bool
	switch PolicyOf(CategoryOf(settings.OS)) {
	case ForceShared:
		shared = true
	case ForceStatic:
		shared = false
	default:
		shared = opts.Shared
	}
	return Definitions{
		Shared: shared,
		Tests:  opts.BuildTest,
	}
}

// Map returns the definitions keyed by CMake variable.
func (d Definitions) Map() map[string]bool {
	return map[string]bool{
		KeyShared: d.Shared,
		KeyTests:  d.Tests,
	}
}

// Args renders the definitions as sorted CMake -D arguments.
func (d Definitions) Args() []string {
	return boolArgs(d.Map())
}

func boolArgs(m map[string]bool) []string {
	args := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := "OFF"
		if m[k] {
			v = "ON"
		}
		args = append(args, fmt.Sprintf("-D%s:BOOL=%s", k, v))
	}
	return args
}

func (d Definitions) String() string {
	return fmt.Sprintf("shared=%s build_tests=%s", recipe.FormatBool(d.Shared), recipe.FormatBool(d.Tests))
}
