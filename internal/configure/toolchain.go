package configure

import (
	"maps"
	"slices"

	"github.com/daixian/dnetpkg/recipe"
)

var (
	systemNames = map[string]string{
		recipe.Windows: "Windows",
		recipe.Linux:   "Linux",
		recipe.Macos:   "Darwin",
		recipe.Android: "Android",
		recipe.IOS:     "iOS",
		"FreeBSD":      "FreeBSD",
		"Emscripten":   "Emscripten",
	}

	androidABIs = map[string]string{
		"armv7":   "armeabi-v7a",
		"armv7hf": "armeabi-v7a",
		"armv8":   "arm64-v8a",
		"x86":     "x86",
		"x86_64":  "x86_64",
	}

	appleArchs = map[string]string{
		"armv7":  "armv7",
		"armv7s": "armv7s",
		"armv8":  "arm64",
		"x86":    "i386",
		"x86_64": "x86_64",
	}
)

// Toolchain returns the CMake string definitions that describe the target
// to CMake itself: the build type and, when cross-building, the target
// system and architecture.
func Toolchain(settings, host recipe.Settings) map[string]string {
	defs := make(map[string]string)
	if settings.BuildType != "" {
		defs["CMAKE_BUILD_TYPE"] = settings.BuildType
	}
	if !settings.CrossBuilding(host) {
		return defs
	}

	if name, ok := systemNames[settings.OS]; ok {
		defs["CMAKE_SYSTEM_NAME"] = name
	}
	if settings.Arch != "" {
		defs["CMAKE_SYSTEM_PROCESSOR"] = settings.Arch
	}
	switch CategoryOf(settings.OS) {
	case Android:
		if abi, ok := androidABIs[settings.Arch]; ok {
			defs["CMAKE_ANDROID_ARCH_ABI"] = abi
		}
	case IOS:
		if arch, ok := appleArchs[settings.Arch]; ok {
			defs["CMAKE_OSX_ARCHITECTURES"] = arch
		}
	}
	if settings.OS == recipe.Macos {
		if arch, ok := appleArchs[settings.Arch]; ok {
			defs["CMAKE_OSX_ARCHITECTURES"] = arch
		}
	}
	return defs
}

// ToolchainArgs renders Toolchain as sorted CMake -D arguments.
func ToolchainArgs(settings, host recipe.Settings) []string {
	defs := Toolchain(settings, host)
	args := make([]string, 0, len(defs))
	for _, k := range slices.Sorted(maps.Keys(defs)) {
		args = append(args, "-D"+k+":STRING="+defs[k])
	}
	return args
}
