package recipe

import (
	"runtime"
	"slices"
	"strings"
)

// Settings describes the target platform and toolchain of one build.
// It is supplied once per invocation and treated as a value.
type Settings struct {
	OS        string `mapstructure:"os" toml:"os"`
	Compiler  string `mapstructure:"compiler" toml:"compiler"`
	Arch      string `mapstructure:"arch" toml:"arch"`
	BuildType string `mapstructure:"build_type" toml:"build_type"`
}

// Well-known operating systems.
const (
	Windows = "Windows"
	Linux   = "Linux"
	Macos   = "Macos"
	Android = "Android"
	IOS     = "iOS"
)

var knownSettings = map[string][]string{
	"os": {
		Windows, "WindowsStore", "WindowsCE", Linux, Macos, Android, IOS,
		"watchOS", "tvOS", "FreeBSD", "SunOS", "AIX", "Emscripten", "Neutrino",
	},
	"compiler": {
		"gcc", "clang", "apple-clang", "Visual Studio", "msvc", "intel", "sun-cc", "qcc",
	},
	"arch": {
		"x86", "x86_64", "ppc32be", "ppc32", "ppc64le", "ppc64",
		"armv4", "armv4i", "armv5el", "armv5hf", "armv6", "armv7", "armv7hf",
		"armv7s", "armv7k", "armv8", "armv8_32", "armv8.3",
		"sparc", "sparcv9", "mips", "mips64", "avr", "s390", "s390x", "wasm", "asm.js",
	},
	"build_type": {"Debug", "Release", "RelWithDebInfo", "MinSizeRel"},
}

// SettingNames returns the setting keys in canonical order.
func SettingNames() []string {
	return []string{"os", "compiler", "arch", "build_type"}
}

// Get returns the value of the named setting.
func (s Settings) Get(key string) (string, bool) {
	switch key {
	case "os":
		return s.OS, true
	case "compiler":
		return s.Compiler, true
	case "arch":
		return s.Arch, true
	case "build_type":
		return s.BuildType, true
	}
	return "", false
}

// Set assigns the named setting. Values are checked by Validate, not here.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "os":
		s.OS = value
	case "compiler":
		s.Compiler = value
	case "arch":
		s.Arch = value
	case "build_type":
		s.BuildType = value
	default:
		return configErrorf("unknown setting %q", key)
	}
	return nil
}

// Validate reports a configuration error for empty or unknown values.
func (s Settings) Validate() error {
	for _, key := range SettingNames() {
		v, _ := s.Get(key)
		if v == "" {
			return configErrorf("setting %q is not set", key)
		}
		if !slices.Contains(knownSettings[key], v) {
			return configErrorf("invalid setting %s=%q, possible values are %s",
				key, v, strings.Join(knownSettings[key], ", "))
		}
	}
	return nil
}

// ParseSettings applies "key=value" pairs on top of base.
func ParseSettings(pairs []string, base Settings) (Settings, error) {
	s := base
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Settings{}, configErrorf("malformed setting %q, want key=value", pair)
		}
		if err := s.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// CrossBuilding reports whether binaries built for s can not run on host.
func (s Settings) CrossBuilding(host Settings) bool {
	return s.OS != host.OS || s.Arch != host.Arch
}

func (s Settings) String() string {
	return strings.Join([]string{s.OS, s.Compiler, s.Arch, s.BuildType}, "-")
}

var (
	goosNames = map[string]string{
		"windows": Windows,
		"linux":   Linux,
		"darwin":  Macos,
		"android": Android,
		"ios":     IOS,
		"freebsd": "FreeBSD",
		"aix":     "AIX",
		"solaris": "SunOS",
		"js":      "Emscripten",
	}
	goarchNames = map[string]string{
		"386":     "x86",
		"amd64":   "x86_64",
		"arm":     "armv7",
		"arm64":   "armv8",
		"ppc64":   "ppc64",
		"ppc64le": "ppc64le",
		"mips":    "mips",
		"mips64":  "mips64",
		"s390x":   "s390x",
		"wasm":    "wasm",
	}
)

// HostSettings describes the machine running this process.
func HostSettings() Settings {
	return hostSettings(runtime.GOOS, runtime.GOARCH)
}

func hostSettings(goos, goarch string) Settings {
	s := Settings{
		OS:        goosNames[goos],
		Arch:      goarchNames[goarch],
		BuildType: "Release",
	}
	switch s.OS {
	case Windows:
		s.Compiler = "Visual Studio"
	case Macos, IOS:
		s.Compiler = "apple-clang"
	default:
		s.Compiler = "gcc"
	}
	return s
}
