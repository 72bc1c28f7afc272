// Package config loads dnetpkg settings from dnet.toml, DNET_* environment
// variables and command line flags, in increasing precedence.
package config

import (
	"maps"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/requires"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/spf13/viper"
)

const (
	// FileName is the configuration file searched in the working directory.
	FileName  = "dnet.toml"
	EnvPrefix = "DNET"

	// DefaultIndex is the versions index looked up when none is configured.
	DefaultIndex = "versions.json"
)

// Config is the decoded configuration.
type Config struct {
	Profile    string `mapstructure:"profile"`
	SourceDir  string `mapstructure:"source_dir"`
	BuildDir   string `mapstructure:"build_dir"`
	PackageDir string `mapstructure:"package_dir"`
	// TestDir is the test package source; empty runs a prebuilt binary.
	TestDir   string `mapstructure:"test_dir"`
	ExecDir   string `mapstructure:"exec_dir"`
	Index     string `mapstructure:"index"`
	CMakeArgs string `mapstructure:"cmake_args"`
	Generator string `mapstructure:"generator"`
	// Toolchain is a CMake toolchain file, e.g. the Android NDK's.
	Toolchain string `mapstructure:"toolchain"`

	Settings recipe.Settings   `mapstructure:"settings"`
	Options  map[string]string `mapstructure:"options"`
}

// SetDefaults configures default values for all configuration keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("profile", requires.ScriptingBinding.String())
	v.SetDefault("source_dir", ".")
	v.SetDefault("build_dir", "")
	v.SetDefault("package_dir", "")
	v.SetDefault("test_dir", "")
	v.SetDefault("exec_dir", "")
	v.SetDefault("index", DefaultIndex)
	v.SetDefault("cmake_args", "")
	v.SetDefault("generator", "")
	v.SetDefault("toolchain", "")

	host := recipe.HostSettings()
	for _, key := range recipe.SettingNames() {
		value, _ := host.Get(key)
		v.SetDefault("settings."+key, value)
	}
	v.SetDefault("options", map[string]string{})
}

// New returns a viper instance with defaults and DNET_* env binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Read merges the configuration file into v. An empty path searches
// FileName in the working directory and tolerates its absence.
func Read(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
		v.AddConfigPath(".")
	}
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

// Decode unmarshals v into a Config.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &c, nil
}

// Load reads path (or ./dnet.toml) into v over its defaults, environment
// and bound flags, and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := Read(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// RecipeSettings applies key=value overrides to the configured settings
// and validates the result.
func (c *Config) RecipeSettings(overrides []string) (recipe.Settings, error) {
	s, err := recipe.ParseSettings(overrides, c.Settings)
	if err != nil {
		return recipe.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return recipe.Settings{}, err
	}
	return s, nil
}

// RecipeOptions applies the configured options, then overrides, over the
// recipe defaults.
func (c *Config) RecipeOptions(overrides []string) (recipe.Options, error) {
	return recipe.ParseOptions(append(c.OptionPairs(), overrides...), recipe.DefaultOptions())
}

// OptionPairs renders the options as sorted name=value pairs.
func (c *Config) OptionPairs() []string {
	pairs := make([]string, 0, len(c.Options))
	for _, k := range slices.Sorted(maps.Keys(c.Options)) {
		pairs = append(pairs, k+"="+c.Options[k])
	}
	return pairs
}

// ProfileValue parses the configured profile.
func (c *Config) ProfileValue() (requires.Profile, error) {
	return requires.ParseProfile(c.Profile)
}
