package recipe

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_CombinationCount(t *testing.T) {
	tests := []struct {
		name   string
		matrix Matrix
		want   int
	}{
		{
			name: "require only",
			matrix: Matrix{
				Require: map[string][]string{
					"os":         {"Linux", "Android"},
					"arch":       {"x86_64", "armv8"},
					"build_type": {"Debug", "Release"},
				},
			},
			want: 8,
		},
		{
			name: "require with options",
			matrix: Matrix{
				Require: map[string][]string{
					"os":   {"Linux"},
					"arch": {"x86_64", "armv8"},
				},
				Options: map[string][]string{
					"shared": {"True", "False"},
				},
			},
			want: 4,
		},
		{
			name: "only options",
			matrix: Matrix{
				Options: map[string][]string{
					"shared":     {"True", "False"},
					"build_test": {"True"},
				},
			},
			want: 2,
		},
		{
			name:   "empty matrix",
			matrix: Matrix{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.matrix.CombinationCount())

			combos, err := tt.matrix.Combinations(Settings{OS: Linux, Compiler: "gcc", Arch: "x86_64", BuildType: "Release"}, DefaultOptions())
			require.NoError(t, err)
			assert.Len(t, combos, tt.want)
		})
	}
}

func keys(combos []Combination) []string {
	var ks []string
	for _, c := range combos {
		ks = append(ks, c.Key)
	}
	return ks
}

func TestMatrix_Combinations(t *testing.T) {
	base := Settings{OS: Linux, Compiler: "gcc", Arch: "x86_64", BuildType: "Release"}

	t.Run("require only", func(t *testing.T) {
		m := Matrix{Require: map[string][]string{
			"os":   {"Linux", "Android"},
			"arch": {"x86_64", "armv8"},
		}}
		got, err := m.Combinations(base, DefaultOptions())
		require.NoError(t, err)
		// sorted keys: arch, os
		assert.Equal(t, []string{
			"x86_64-Linux",
			"x86_64-Android",
			"armv8-Linux",
			"armv8-Android",
		}, keys(got))
		assert.Equal(t, Settings{OS: Android, Compiler: "gcc", Arch: "armv8", BuildType: "Release"}, got[3].Settings)
	})

	t.Run("require with options", func(t *testing.T) {
		m := Matrix{
			Require: map[string][]string{"os": {"iOS"}},
			Options: map[string][]string{"shared": {"True", "False"}},
		}
		got, err := m.Combinations(base, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"iOS_True", "iOS_False"}, keys(got))
		assert.True(t, got[0].Options.Shared)
		assert.False(t, got[1].Options.Shared)
		assert.True(t, got[1].Options.BuildTest, "unlisted options keep their base value")
	})

	t.Run("options do not leak between combinations", func(t *testing.T) {
		m := Matrix{Options: map[string][]string{"dlog:shared": {"True", "False"}}}
		got, err := m.Combinations(base, DefaultOptions())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "True", got[0].Options.Deps["dlog"]["shared"])
		assert.Equal(t, "False", got[1].Options.Deps["dlog"]["shared"])
	})

	t.Run("empty matrix", func(t *testing.T) {
		m := Matrix{}
		got, err := m.Combinations(base, DefaultOptions())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown setting", func(t *testing.T) {
		m := Matrix{Require: map[string][]string{"libc": {"musl"}}}
		_, err := m.Combinations(base, DefaultOptions())
		assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
	})

	t.Run("bad option value", func(t *testing.T) {
		m := Matrix{Options: map[string][]string{"shared": {"maybe"}}}
		_, err := m.Combinations(base, DefaultOptions())
		assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
	})
}
