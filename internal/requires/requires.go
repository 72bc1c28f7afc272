// Package requires declares the dependency requirements of the dnet
// package for each build profile and role, and resolves them against the
// versions a registry offers.
package requires

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/daixian/dnetpkg/recipe"
)

// ErrResolution marks requirements that cannot be satisfied: malformed or
// conflicting constraints, or no matching version.
var ErrResolution = errors.New("resolution error")

func resolutionErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrResolution)
}

// Profile selects one of the two runtime dependency sets dnet can be built
// against.
type Profile int

const (
	// ScriptingBinding links the scripting and serialization bindings.
	ScriptingBinding Profile = iota
	// PortabilityLib links a general-purpose portability library instead.
	PortabilityLib
)

var profileNames = map[Profile]string{
	ScriptingBinding: "scripting",
	PortabilityLib:   "portability",
}

func (p Profile) String() string {
	if s, ok := profileNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// ParseProfile parses a profile name as printed by Profile.String.
func ParseProfile(s string) (Profile, error) {
	for p, name := range profileNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, errors.Mark(errors.Newf("unknown profile %q, want scripting or portability", s), recipe.ErrConfiguration)
}

// Role is what the requirement list is for.
type Role int

const (
	// Main is the distributed package itself.
	Main Role = iota
	// Verification is the test package that links and runs a test binary
	// against the main package.
	Verification
)

func (r Role) String() string {
	if r == Verification {
		return "test"
	}
	return "main"
}

// ParseRole parses "main" or "test".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "main", "":
		return Main, nil
	case "test", "verification":
		return Verification, nil
	}
	return 0, errors.Mark(errors.Newf("unknown role %q, want main or test", s), recipe.ErrConfiguration)
}

type declared struct {
	ref     string
	options map[string]string
}

var (
	dlog = declared{"dlog/[>=2.6.0]@daixian/stable", map[string]string{"shared": "False"}}

	runtimeRequires = map[Profile][]declared{
		ScriptingBinding: {
			dlog,
			{ref: "xuexuesharp/[>=0.0.16]@daixian/stable"},
			{ref: "xuexuejson/[>1.1.0]@daixian/stable"},
		},
		PortabilityLib: {
			dlog,
			{"poco/[>=1.9.0]@pocoproject/stable", map[string]string{"enable_data_sqlite": "False"}},
		},
	}

	// The test sources exercise newer serialization APIs than the library.
	verificationRequires = map[Profile][]declared{
		ScriptingBinding: {
			{ref: "xuexuejson/[>=1.3.0]@daixian/stable"},
		},
	}

	buildRequires = []declared{
		{ref: "gtest/1.8.1@bincrafters/stable"},
	}
)

func (d declared) requirement(kind module.Kind) module.Requirement {
	r := module.MustParse(d.ref).WithOptions(d.options)
	r.Kind = kind
	return r
}

// For returns the requirements of profile p in role. The result never
// lists one name twice: requirements declared more than once are merged
// into one whose constraint satisfies every declaration.
func For(p Profile, role Role) ([]module.Requirement, error) {
	runtime, ok := runtimeRequires[p]
	if !ok {
		return nil, errors.Mark(errors.Newf("unknown profile %d", int(p)), recipe.ErrConfiguration)
	}

	var reqs []module.Requirement
	for _, d := range runtime {
		reqs = append(reqs, d.requirement(module.Runtime))
	}
	if role == Verification {
		for _, d := range verificationRequires[p] {
			reqs = append(reqs, d.requirement(module.Runtime))
		}
		for _, d := range buildRequires {
			reqs = append(reqs, d.requirement(module.BuildOnly))
		}
	}
	return Dedupe(reqs)
}

// Dedupe merges requirements that share a name, keeping first-declaration
// order.
func Dedupe(reqs []module.Requirement) ([]module.Requirement, error) {
	var out []module.Requirement
	index := make(map[string]int, len(reqs))
	for _, r := range reqs {
		if _, err := r.Constraints(); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "requirement %s", r), ErrResolution)
		}
		i, seen := index[r.Name]
		if !seen {
			index[r.Name] = len(out)
			out = append(out, r.WithOptions(r.Options))
			continue
		}
		merged, err := merge(out[i], r)
		if err != nil {
			return nil, err
		}
		out[i] = merged
	}
	return out, nil
}

func merge(a, b module.Requirement) (module.Requirement, error) {
	if a.Channel != b.Channel {
		return module.Requirement{}, resolutionErrorf("conflicting channels for %s: %q and %q", a.Name, a.Channel, b.Channel)
	}

	m := a
	if b.Kind == module.Runtime {
		m.Kind = module.Runtime
	}

	m.Options = maps.Clone(a.Options)
	for k, v := range b.Options {
		if cur, ok := m.Options[k]; ok && cur != v {
			return module.Requirement{}, resolutionErrorf("conflicting option %s:%s: %q and %q", a.Name, k, cur, v)
		}
		if m.Options == nil {
			m.Options = make(map[string]string)
		}
		m.Options[k] = v
	}

	switch {
	case a.Exact && b.Exact:
		if !module.SameVersion(a.Constraint, b.Constraint) {
			return module.Requirement{}, resolutionErrorf("conflicting versions for %s: %s and %s", a.Name, a.Constraint, b.Constraint)
		}
	case a.Exact || b.Exact:
		pin, rng := a, b
		if b.Exact {
			pin, rng = b, a
		}
		ok, err := rng.Allows(pin.Constraint)
		if err != nil || !ok {
			return module.Requirement{}, resolutionErrorf("conflicting versions for %s: %s is outside [%s]", a.Name, pin.Constraint, rng.Constraint)
		}
		m.Constraint, m.Exact = pin.Constraint, true
	case a.Constraint != b.Constraint:
		if strings.Contains(a.Constraint, "||") || strings.Contains(b.Constraint, "||") {
			return module.Requirement{}, resolutionErrorf("cannot combine alternative ranges for %s: [%s] and [%s]", a.Name, a.Constraint, b.Constraint)
		}
		m.Constraint = a.Constraint + ", " + b.Constraint
	}
	return m, nil
}

// ApplyOptions sets the per-dependency overrides of opts on the matching
// requirements. It returns the names in opts that no requirement uses.
func ApplyOptions(reqs []module.Requirement, opts recipe.Options) ([]module.Requirement, []string) {
	used := make(map[string]bool, len(opts.Deps))
	out := make([]module.Requirement, len(reqs))
	for i, r := range reqs {
		o := maps.Clone(r.Options)
		if kvs := opts.DepOptions(r.Name); kvs != nil {
			used[r.Name] = true
			if o == nil {
				o = make(map[string]string, len(kvs))
			}
			maps.Copy(o, kvs)
		}
		out[i] = r.WithOptions(o)
	}

	var unused []string
	for _, dep := range slices.Sorted(maps.Keys(opts.Deps)) {
		if !used[dep] {
			unused = append(unused, dep)
		}
	}
	return out, unused
}
