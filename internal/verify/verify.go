// Package verify builds and runs the dnet test package against an
// installed package directory.
package verify

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/build"
	"github.com/daixian/dnetpkg/pkgs/buildsys"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/kballard/go-shellquote"
)

// ErrVerification marks a test package that could not be built or run.
// A test binary that runs and fails is not an error; see Result.ExitCode.
var ErrVerification = errors.New("verification failure")

const (
	DefaultBinary = "test.out"
	DefaultReport = "gtest_report.xml"
)

// Import copies shared libraries matching Pattern in Dir of the package
// into the execution directory.
type Import struct {
	Pattern string
	Dir     string
}

// DefaultImports are the runtime libraries the test binary loads.
func DefaultImports() []Import {
	return []Import{
		{Pattern: "*.dll", Dir: build.BinDir},
		{Pattern: "*.dylib*", Dir: build.LibDir},
		{Pattern: "*.so*", Dir: build.LibDir},
	}
}

// Harness runs the test package.
type Harness struct {
	PackageDir string
	// Native, when set, builds the test package against PackageDir first.
	Native buildsys.BuildSystem
	Args   []string
	// ExecDir is where imports land and the binary runs. Defaults to
	// Native's output directory.
	ExecDir string
	Binary  string
	Report  string
	Imports []Import

	// Settings is the target; when zero it is read from the package
	// descriptor. Host defaults to recipe.HostSettings.
	Settings recipe.Settings
	Host     recipe.Settings

	Stdout io.Writer
	Logger *log.Logger
}

// Result describes one verification run.
type Result struct {
	Skipped  bool
	ExitCode int
	// Report is the gtest XML path, empty if the binary wrote none.
	Report   string
	Imported []string
}

func verifyErrorf(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrVerification)
}

func (h *Harness) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

func (h *Harness) target() recipe.Settings {
	if h.Settings != (recipe.Settings{}) {
		return h.Settings
	}
	if d, err := build.LoadDescriptor(h.PackageDir); err == nil {
		return d.Settings
	}
	return h.host()
}

func (h *Harness) host() recipe.Settings {
	if h.Host != (recipe.Settings{}) {
		return h.Host
	}
	return recipe.HostSettings()
}

// Run verifies the package. Cross-building skips verification and reports
// success; otherwise the exit code of the test binary is returned as is.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	logger := h.logger()
	target, host := h.target(), h.host()
	if target.CrossBuilding(host) {
		logger.Info("cross building, skipping tests", "target", target, "host", host)
		return &Result{Skipped: true}, nil
	}

	execDir := h.ExecDir
	if h.Native != nil {
		if err := h.buildTests(ctx, target); err != nil {
			return nil, err
		}
		if execDir == "" {
			execDir = h.Native.OutputDir()
		}
	}
	if execDir == "" {
		return nil, errors.Mark(errors.New("verify: no execution directory"), ErrVerification)
	}
	if err := os.MkdirAll(execDir, 0o755); err != nil {
		return nil, verifyErrorf(err, "create %s", execDir)
	}

	imported, err := h.importLibs(execDir)
	if err != nil {
		return nil, err
	}
	res, err := h.runBinary(ctx, execDir)
	if err != nil {
		return nil, err
	}
	res.Imported = imported
	return res, nil
}

// buildTests builds the test package with the build type of the package
// under test.
func (h *Harness) buildTests(ctx context.Context, target recipe.Settings) error {
	h.Native.Use(h.PackageDir)
	if target.BuildType != "" {
		h.Native.Define("CMAKE_BUILD_TYPE", target.BuildType)
	}
	if err := h.Native.Configure(ctx, h.Args...); err != nil {
		return nativeError("configure test package", err)
	}
	if err := h.Native.Build(ctx); err != nil {
		return nativeError("build test package", err)
	}
	return nil
}

func nativeError(step string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return verifyErrorf(err, "%s", step)
}

func (h *Harness) importLibs(execDir string) ([]string, error) {
	imports := h.Imports
	if imports == nil {
		imports = DefaultImports()
	}
	var imported []string
	for _, imp := range imports {
		dir := filepath.Join(h.PackageDir, filepath.FromSlash(imp.Dir))
		matches, err := doublestar.Glob(os.DirFS(dir), imp.Pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, verifyErrorf(err, "import %s", imp.Pattern)
		}
		for _, m := range matches {
			name := path.Base(m)
			if err := copyFile(filepath.Join(dir, filepath.FromSlash(m)), filepath.Join(execDir, name)); err != nil {
				return nil, verifyErrorf(err, "import %s", m)
			}
			imported = append(imported, name)
		}
	}
	slices.Sort(imported)
	return slices.Compact(imported), nil
}

func (h *Harness) runBinary(ctx context.Context, execDir string) (*Result, error) {
	binary := h.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	report := h.Report
	if report == "" {
		report = DefaultReport
	}
	bin := filepath.Join(execDir, binary)
	args := []string{"--gtest_output=xml:" + report}

	h.logger().Info("run tests", "cmd", shellquote.Join(append([]string{"./" + binary}, args...)...), "dir", execDir)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = execDir
	cmd.Env = append(os.Environ(), libraryPathEnv(execDir))
	out := h.Stdout
	if out == nil {
		out = os.Stdout
	}
	cmd.Stdout = out
	cmd.Stderr = out

	res := &Result{}
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, verifyErrorf(err, "run %s", binary)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	if reportPath := filepath.Join(execDir, report); exists(reportPath) {
		res.Report = reportPath
	}
	h.logger().Info("tests finished", "exit", res.ExitCode, "report", res.Report)
	return res, nil
}

// libraryPathEnv lets the loader find imported shared libraries in dir.
func libraryPathEnv(dir string) string {
	key := "LD_LIBRARY_PATH"
	switch runtime.GOOS {
	case "windows":
		key = "PATH"
	case "darwin":
		key = "DYLD_LIBRARY_PATH"
	}
	if cur := os.Getenv(key); cur != "" {
		return key + "=" + dir + string(os.PathListSeparator) + cur
	}
	return key + "=" + dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
