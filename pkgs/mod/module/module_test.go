package module

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Requirement
		wantErr bool
	}{
		{
			in:   "dlog/[>=2.6.0]@daixian/stable",
			want: Requirement{Name: "dlog", Constraint: ">=2.6.0", Channel: "daixian/stable"},
		},
		{
			in:   "xuexuejson/[>1.1.0]@daixian/stable",
			want: Requirement{Name: "xuexuejson", Constraint: ">1.1.0", Channel: "daixian/stable"},
		},
		{
			in:   "gtest/1.8.1@bincrafters/stable",
			want: Requirement{Name: "gtest", Constraint: "1.8.1", Exact: true, Channel: "bincrafters/stable"},
		},
		{
			in:   "zlib/[~1.2]",
			want: Requirement{Name: "zlib", Constraint: "~1.2"},
		},
		{
			in:   "boost/[>=1.69.0 <2.0.0]@conan/stable",
			want: Requirement{Name: "boost", Constraint: ">=1.69.0 <2.0.0", Channel: "conan/stable"},
		},
		{in: "dlog", wantErr: true},
		{in: "/[>=1.0]", wantErr: true},
		{in: "dlog/", wantErr: true},
		{in: "dlog/[]", wantErr: true},
		{in: "dlog/[>=2.6.0", wantErr: true},
		{in: "dlog/[>=2.6.0]@daixian", wantErr: true},
		{in: "dlog/[>=2.6.0]@/stable", wantErr: true},
		{in: "dlog/[not a range]", wantErr: true},
		{in: "dlog/latest", wantErr: true},
		{in: "d log/1.0.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

func TestAllows(t *testing.T) {
	tests := []struct {
		ref     string
		version string
		want    bool
	}{
		{"dlog/[>=2.6.0]", "2.6.0", true},
		{"dlog/[>=2.6.0]", "2.5.9", false},
		{"xuexuejson/[>1.1.0]", "1.1.0", false},
		{"xuexuejson/[>1.1.0, >=1.3.0]", "1.2.0", false},
		{"xuexuejson/[>1.1.0, >=1.3.0]", "1.3.0", true},
		{"gtest/1.8.1", "1.8.1", true},
		{"gtest/1.8.1", "1.8.2", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref+"@"+tt.version, func(t *testing.T) {
			got, err := MustParse(tt.ref).Allows(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MustParse("dlog/[>=2.6.0]").Allows("not-a-version")
	assert.Error(t, err)
}

func TestOptionPairs(t *testing.T) {
	r := MustParse("poco/[>=1.9.0]@pocoproject/stable").WithOptions(map[string]string{
		"shared":             "False",
		"enable_data_sqlite": "False",
	})
	assert.Equal(t, []string{"poco:enable_data_sqlite=False", "poco:shared=False"}, r.OptionPairs())
	assert.Equal(t, "poco/[>=1.9.0]@pocoproject/stable", r.String())
}

func TestSameVersion(t *testing.T) {
	assert.True(t, SameVersion("1.8.1", "1.8.1"))
	assert.True(t, SameVersion("1.8", "1.8.0"))
	assert.True(t, SameVersion("v1.8.1", "1.8.1"))
	assert.False(t, SameVersion("1.8.1", "1.8.2"))
	assert.False(t, SameVersion("snapshot", "1.8.1"))
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "dlog/2.7.0@daixian/stable", Version{Name: "dlog", Version: "2.7.0", Channel: "daixian/stable"}.String())
	assert.Equal(t, "dlog/2.7.0", Version{Name: "dlog", Version: "2.7.0"}.String())
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantEscaped string
		wantErr     bool
	}{
		{
			name:        "simple path",
			path:        "dnet/1.0.0",
			wantEscaped: filepath.Join("dnet", "1.0.0"),
		},
		{
			name:    "empty string",
			path:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped, err := EscapePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEscaped, escaped)
		})
	}
}

func TestEscapePath_Invalid(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("absolute path test only applies to windows")
	}

	_, err := EscapePath("C:\\absolute\\path")
	assert.Error(t, err)
}
