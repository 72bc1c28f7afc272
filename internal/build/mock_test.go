package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/daixian/dnetpkg/pkgs/buildsys"
)

// mockNative implements buildsys.BuildSystem for testing. Build writes
// artifacts into its output directory instead of compiling anything.
type mockNative struct {
	source    string
	outputDir string
	defines   map[string]string
	env       map[string]string
	uses      []string

	artifacts map[string]string // path relative to outputDir -> content
	failStep  string
	output    string

	configured, built bool
}

var _ buildsys.BuildSystem = (*mockNative)(nil)

func newMockNative(outputDir string, artifacts map[string]string) *mockNative {
	return &mockNative{
		outputDir: outputDir,
		defines:   map[string]string{},
		env:       map[string]string{},
		artifacts: artifacts,
	}
}

func (m *mockNative) Use(root string)          { m.uses = append(m.uses, root) }
func (m *mockNative) Source(dir string)        { m.source = dir }
func (m *mockNative) Define(key, value string) { m.defines[key] = value }
func (m *mockNative) Env(key, val string)      { m.env[key] = val }
func (m *mockNative) OutputDir() string        { return m.outputDir }

func (m *mockNative) DefineBool(key string, value bool) {
	if value {
		m.defines[key] = "ON"
		return
	}
	m.defines[key] = "OFF"
}

func (m *mockNative) Configure(ctx context.Context, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failStep == "configure" {
		return &buildsys.ExitError{Command: "cmake -S " + m.source, Code: 1, Output: []byte(m.output)}
	}
	m.configured = true
	return os.MkdirAll(m.outputDir, 0o755)
}

func (m *mockNative) Build(ctx context.Context, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failStep == "build" {
		return &buildsys.ExitError{Command: "cmake --build " + m.outputDir, Code: 2, Output: []byte(m.output)}
	}
	for name, content := range m.artifacts {
		path := filepath.Join(m.outputDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	m.built = true
	return nil
}
