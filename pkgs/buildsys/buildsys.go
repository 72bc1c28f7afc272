package buildsys

import (
	"context"
	"fmt"
)

// BuildSystem captures shared capabilities of native build helpers.
// It keeps the common lifecycle and dependency/env setup; implementations add their own extras.
type BuildSystem interface {
	// Use points the build at an installed package root (include/, lib/).
	Use(root string)

	// Basic paths.
	Source(dir string)

	// Definitions passed to the configure step.
	Define(key, value string)
	DefineBool(key string, value bool)

	// Environment helper.
	Env(key, val string)

	// Lifecycle. A tool that runs and exits non-zero yields an *ExitError.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// ExitError reports a native tool invocation that did not succeed.
// Output holds everything the tool wrote to stdout and stderr.
type ExitError struct {
	Command string
	// Code is the exit status, or -1 when the tool could not be started.
	Code   int
	Output []byte
	Err    error
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }
