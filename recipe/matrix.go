package recipe

import (
	"slices"
	"sort"
	"strings"
)

// Matrix enumerates builds over several settings and option values.
// Require is keyed by setting name (os, compiler, arch, build_type) and
// Options by package option name.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// Combination is one point of a Matrix.
type Combination struct {
	Settings Settings
	Options  Options

	// Key identifies the combination and is safe to use as a directory
	// name, so parallel builds never share an output directory.
	Key string
}

type assignment struct {
	key, value string
}

// cartesian returns the product of kvs with keys sorted alphabetically,
// built layer by layer.
func cartesian(kvs map[string][]string) [][]assignment {
	if len(kvs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([][]assignment, 0, len(kvs[keys[0]]))
	for _, v := range kvs[keys[0]] {
		result = append(result, []assignment{{keys[0], v}})
	}

	for i := 1; i < len(keys); i++ {
		values := kvs[keys[i]]
		next := make([][]assignment, 0, len(result)*len(values))
		for _, prev := range result {
			for _, v := range values {
				next = append(next, append(slices.Clip(prev), assignment{keys[i], v}))
			}
		}
		result = next
	}
	return result
}

func joinValues(as []assignment) string {
	vals := make([]string, len(as))
	for i, a := range as {
		vals[i] = a.value
	}
	return strings.Join(vals, "-")
}

// Combinations applies every point of the matrix on top of base settings
// and options. Require values are joined with "-" in the key, then
// combined with option values using "_".
func (m *Matrix) Combinations(base Settings, opts Options) ([]Combination, error) {
	requireCombos := cartesian(m.Require)
	optionsCombos := cartesian(m.Options)

	if len(requireCombos) == 0 && len(optionsCombos) == 0 {
		return nil, nil
	}
	if len(requireCombos) == 0 {
		requireCombos = [][]assignment{nil}
	}
	if len(optionsCombos) == 0 {
		optionsCombos = [][]assignment{nil}
	}

	result := make([]Combination, 0, m.CombinationCount())
	for _, req := range requireCombos {
		s := base
		for _, a := range req {
			if err := s.Set(a.key, a.value); err != nil {
				return nil, err
			}
		}
		for _, opt := range optionsCombos {
			o := opts.Clone()
			for _, a := range opt {
				if err := o.Set(a.key, a.value); err != nil {
					return nil, err
				}
			}
			key := joinValues(req)
			if len(opt) > 0 {
				if key != "" {
					key += "_"
				}
				key += joinValues(opt)
			}
			result = append(result, Combination{Settings: s, Options: o, Key: key})
		}
	}
	return result, nil
}

// CombinationCount returns how many combinations Combinations yields
// without enumerating them.
func (m *Matrix) CombinationCount() int {
	if len(m.Require) == 0 && len(m.Options) == 0 {
		return 0
	}
	n := 1
	for _, axis := range []map[string][]string{m.Require, m.Options} {
		for _, values := range axis {
			n *= len(values)
		}
	}
	return n
}
