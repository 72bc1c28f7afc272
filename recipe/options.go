package recipe

import (
	"maps"
	"slices"
	"strings"
)

// Package option names.
const (
	OptShared    = "shared"
	OptBuildTest = "build_test"
)

// Options are the user-chosen switches of one build.
//
// Deps holds per-dependency overrides written as "dep:key=value". They are
// forwarded to the dependency as-is and never affect Shared.
type Options struct {
	Shared    bool
	BuildTest bool
	Deps      map[string]map[string]string
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{
		Shared:    false,
		BuildTest: true,
		Deps: map[string]map[string]string{
			"dlog": {OptShared: "False"},
		},
	}
}

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	c := o
	c.Deps = make(map[string]map[string]string, len(o.Deps))
	for dep, kvs := range o.Deps {
		c.Deps[dep] = maps.Clone(kvs)
	}
	return c
}

// Set assigns one option. name is either a package option or "dep:key".
func (o *Options) Set(name, value string) error {
	if dep, key, ok := strings.Cut(name, ":"); ok {
		if dep == "" || key == "" {
			return configErrorf("malformed dependency option %q, want dep:key", name)
		}
		if value == "" {
			return configErrorf("dependency option %q has an empty value", name)
		}
		if o.Deps == nil {
			o.Deps = make(map[string]map[string]string)
		}
		if o.Deps[dep] == nil {
			o.Deps[dep] = make(map[string]string)
		}
		o.Deps[dep][key] = value
		return nil
	}

	var dst *bool
	switch name {
	case OptShared:
		dst = &o.Shared
	case OptBuildTest:
		dst = &o.BuildTest
	default:
		return configErrorf("unknown option %q, possible options are %s, %s", name, OptShared, OptBuildTest)
	}
	b, err := ParseBool(value)
	if err != nil {
		return configErrorf("invalid value %q for option %q: possible values are True, False", value, name)
	}
	*dst = b
	return nil
}

// ParseOptions applies "name=value" pairs on top of base.
func ParseOptions(pairs []string, base Options) (Options, error) {
	o := base.Clone()
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Options{}, configErrorf("malformed option %q, want name=value", pair)
		}
		if err := o.Set(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			return Options{}, err
		}
	}
	return o, nil
}

// DepOptions returns the overrides for dep, or nil.
func (o Options) DepOptions(dep string) map[string]string {
	return maps.Clone(o.Deps[dep])
}

// Pairs returns every option as "name=value", package options first and
// dependency options sorted.
func (o Options) Pairs() []string {
	pairs := []string{
		OptBuildTest + "=" + FormatBool(o.BuildTest),
		OptShared + "=" + FormatBool(o.Shared),
	}
	for _, dep := range slices.Sorted(maps.Keys(o.Deps)) {
		kvs := o.Deps[dep]
		for _, key := range slices.Sorted(maps.Keys(kvs)) {
			pairs = append(pairs, dep+":"+key+"="+kvs[key])
		}
	}
	return pairs
}

// ParseBool accepts the spellings recipes use for boolean options.
func ParseBool(v string) (bool, error) {
	switch v {
	case "True", "true", "ON", "on", "1":
		return true, nil
	case "False", "false", "OFF", "off", "0":
		return false, nil
	}
	return false, configErrorf("not a boolean: %q", v)
}

// FormatBool renders b the way option values are written.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
