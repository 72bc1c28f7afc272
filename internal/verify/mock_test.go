package verify

import (
	"context"

	"github.com/daixian/dnetpkg/pkgs/buildsys"
)

// mockNative records how the test package would be built.
type mockNative struct {
	outputDir string
	uses      []string
	args      []string
	defines   map[string]string
	fail      bool

	configured, built bool
}

var _ buildsys.BuildSystem = (*mockNative)(nil)

func (m *mockNative) Use(root string)                   { m.uses = append(m.uses, root) }
func (m *mockNative) Source(dir string)                 {}
func (m *mockNative) DefineBool(key string, value bool) {}
func (m *mockNative) Env(key, val string)               {}
func (m *mockNative) OutputDir() string                 { return m.outputDir }

func (m *mockNative) Define(key, value string) {
	if m.defines == nil {
		m.defines = map[string]string{}
	}
	m.defines[key] = value
}

func (m *mockNative) Configure(ctx context.Context, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.fail {
		return &buildsys.ExitError{Command: "cmake", Code: 1, Output: []byte("test.cpp:1: fatal error: gtest/gtest.h: No such file or directory")}
	}
	m.args = args
	m.configured = true
	return nil
}

func (m *mockNative) Build(ctx context.Context, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.built = true
	return nil
}
