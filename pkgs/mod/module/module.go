// Package module defines the Requirement and Version types along with the
// "<name>/<version-constraint>[@<user>/<channel>]" reference syntax.
package module

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	modsemver "golang.org/x/mod/semver"
)

// Kind tells whether a requirement is distributed with the package.
type Kind int

const (
	// Runtime requirements are linked into the final artifact.
	Runtime Kind = iota
	// BuildOnly requirements are needed to build or test, never propagated
	// to consumers.
	BuildOnly
)

func (k Kind) String() string {
	if k == BuildOnly {
		return "build"
	}
	return "runtime"
}

// A Version is a requirement after resolution: one concrete version.
type Version struct {
	Name    string
	Version string
	Channel string
}

func (v Version) String() string {
	s := v.Name + "/" + v.Version
	if v.Channel != "" {
		s += "@" + v.Channel
	}
	return s
}

// A Requirement declares a dependency on a range of versions of Name.
type Requirement struct {
	Name string
	// Constraint is a range expression such as ">=2.6.0", or a single
	// version when Exact is set.
	Constraint string
	Exact      bool
	// Channel is the "user/channel" origin, empty when unspecified.
	Channel string
	Kind    Kind
	// Options are overrides applied to the dependency's own options.
	Options map[string]string
}

// Parse parses a reference like "dlog/[>=2.6.0]@daixian/stable" or
// "gtest/1.8.1@bincrafters/stable".
func Parse(s string) (Requirement, error) {
	name, rest, ok := strings.Cut(s, "/")
	if !ok {
		return Requirement{}, errors.Newf("malformed requirement %q: missing version", s)
	}
	if err := checkName(name); err != nil {
		return Requirement{}, errors.Wrapf(err, "malformed requirement %q", s)
	}

	ref, channel, hasChannel := strings.Cut(rest, "@")
	if hasChannel {
		user, ch, ok := strings.Cut(channel, "/")
		if !ok || user == "" || ch == "" || strings.Contains(ch, "/") {
			return Requirement{}, errors.Newf("malformed requirement %q: channel must be user/channel", s)
		}
	}

	r := Requirement{Name: name, Channel: channel}
	if strings.HasPrefix(ref, "[") {
		if !strings.HasSuffix(ref, "]") {
			return Requirement{}, errors.Newf("malformed requirement %q: unterminated version range", s)
		}
		r.Constraint = strings.TrimSpace(ref[1 : len(ref)-1])
	} else {
		r.Constraint = ref
		r.Exact = true
	}
	if r.Constraint == "" {
		return Requirement{}, errors.Newf("malformed requirement %q: empty version", s)
	}
	if _, err := r.Constraints(); err != nil {
		return Requirement{}, errors.Wrapf(err, "malformed requirement %q", s)
	}
	return r, nil
}

// MustParse is like Parse but panics on malformed input. It is meant for
// the recipe's own literal requirement tables.
func MustParse(s string) Requirement {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

func checkName(name string) error {
	if name == "" {
		return errors.New("empty name")
	}
	for i, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		case i > 0 && (c == '-' || c == '.' || c == '+'):
		default:
			return errors.Newf("invalid character %q in name %q", c, name)
		}
	}
	return nil
}

// Constraints returns the semver constraint set r accepts.
func (r Requirement) Constraints() (*semver.Constraints, error) {
	if r.Exact {
		if _, err := semver.NewVersion(r.Constraint); err != nil {
			return nil, err
		}
		return semver.NewConstraint("=" + r.Constraint)
	}
	return semver.NewConstraint(r.Constraint)
}

// Allows reports whether version satisfies r.
func (r Requirement) Allows(version string) (bool, error) {
	cs, err := r.Constraints()
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, err
	}
	return cs.Check(v), nil
}

// WithOptions returns a copy of r carrying the given option overrides.
func (r Requirement) WithOptions(opts map[string]string) Requirement {
	r.Options = maps.Clone(opts)
	return r
}

// String formats r in reference syntax. Options are not part of it.
func (r Requirement) String() string {
	s := r.Name + "/"
	if r.Exact {
		s += r.Constraint
	} else {
		s += "[" + r.Constraint + "]"
	}
	if r.Channel != "" {
		s += "@" + r.Channel
	}
	return s
}

// OptionPairs returns r.Options as sorted "name:key=value" strings.
func (r Requirement) OptionPairs() []string {
	var pairs []string
	for _, k := range slices.Sorted(maps.Keys(r.Options)) {
		pairs = append(pairs, r.Name+":"+k+"="+r.Options[k])
	}
	return pairs
}

// SameVersion reports whether two exact versions denote the same release,
// so "1.8" and "1.8.0" compare equal.
func SameVersion(v1, v2 string) bool {
	c1, c2 := canonical(v1), canonical(v2)
	if c1 == "" || c2 == "" {
		return v1 == v2
	}
	return modsemver.Compare(c1, c2) == 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return modsemver.Canonical(v)
}

// EscapePath returns the escaped form of the given reference path as a
// valid file system path.
func EscapePath(path string) (escaped string, err error) {
	return filepath.Localize(path)
}
