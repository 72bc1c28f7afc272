// Package build runs the native build of dnet and packages its artifacts.
package build

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/configure"
	"github.com/daixian/dnetpkg/pkgs/buildsys"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/daixian/dnetpkg/recipe"
)

var (
	// ErrBuildFailure marks a native configure or compile step that failed.
	ErrBuildFailure = errors.New("build failure")
	// ErrPackaging marks a build whose artifacts do not form a valid package.
	ErrPackaging = errors.New("packaging failure")
)

// Failure carries the output of a failed native build.
type Failure struct {
	Step   string
	Output []byte
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("native %s failed: %v", f.Step, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func packagingErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrPackaging)
}

// DefaultCMakeDir is where the dnet sources keep their CMake project.
const DefaultCMakeDir = "src"

// Builder builds one configuration of dnet and packages it.
type Builder struct {
	// Native drives the native build; its OutputDir is searched for binaries.
	Native     buildsys.BuildSystem
	SourceDir  string
	PackageDir string
	// CMakeDir holds the top-level CMakeLists.txt, relative to SourceDir.
	// Empty means DefaultCMakeDir.
	CMakeDir string

	Settings recipe.Settings
	// Host is the machine running the build. Zero means native.
	Host    recipe.Settings
	Options recipe.Options
	// Requires records the resolved dependencies in the descriptor.
	Requires []module.Version
	// Uses are installed dependency packages the native build consumes.
	Uses []string
	// Args are extra shell-quoted configure arguments.
	Args []string

	// Rules defaults to DefaultRules, Libs to recipe.Libs.
	Rules []Rule
	Libs  []string

	Logger *log.Logger
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// Build compiles dnet with defs and packages the artifacts into PackageDir.
// PackageDir is replaced only once packaging is complete; on any error it
// is left as it was.
func (b *Builder) Build(ctx context.Context, defs configure.Definitions) (*Descriptor, error) {
	if b.Native == nil {
		return nil, errors.New("build: no native build system")
	}
	if b.PackageDir == "" {
		return nil, errors.New("build: no package directory")
	}
	logger := b.logger()

	host := b.Host
	if host == (recipe.Settings{}) {
		host = b.Settings
	}
	b.Native.Source(b.cmakeSource())
	for k, v := range defs.Map() {
		b.Native.DefineBool(k, v)
	}
	for k, v := range configure.Toolchain(b.Settings, host) {
		b.Native.Define(k, v)
	}
	for _, root := range b.Uses {
		b.Native.Use(root)
	}

	logger.Info("configure", "settings", b.Settings, "defs", defs)
	if err := b.Native.Configure(ctx, b.Args...); err != nil {
		return nil, nativeError("configure", err)
	}
	logger.Info("compile", "dir", b.Native.OutputDir())
	if err := b.Native.Build(ctx); err != nil {
		return nil, nativeError("build", err)
	}

	d, err := b.pack(defs)
	if err != nil {
		return nil, err
	}
	logger.Info("packaged", "dir", b.PackageDir, "files", len(d.Files))
	return d, nil
}

func nativeError(step string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	f := &Failure{Step: step, Err: err}
	var exitErr *buildsys.ExitError
	if errors.As(err, &exitErr) {
		f.Output = exitErr.Output
	}
	return errors.Mark(f, ErrBuildFailure)
}

// pack stages the package next to PackageDir and renames it into place.
func (b *Builder) pack(defs configure.Definitions) (*Descriptor, error) {
	parent := filepath.Dir(b.PackageDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	staging, err := os.MkdirTemp(parent, ".dnet-staging-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	files, err := b.collect(staging)
	if err != nil {
		return nil, err
	}
	d := b.describe(defs, files)
	if err := saveDescriptor(staging, d); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(b.PackageDir); err != nil {
		return nil, err
	}
	if err := os.Rename(staging, b.PackageDir); err != nil {
		return nil, err
	}
	return d, nil
}

// collect applies the rules into root and checks the result is a package.
func (b *Builder) collect(root string) ([]string, error) {
	rules := b.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	buildDir := b.Native.OutputDir()

	placed := make(map[string]bool)
	var headers int
	for _, r := range rules {
		tree := b.SourceDir
		skip := buildDir
		if r.From == BuildTree {
			tree, skip = buildDir, ""
		}
		ops, err := r.match(tree, skip)
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			if placed[op.dst] {
				b.logger().Warn("artifact replaced", "file", op.dst, "by", op.src)
			}
			if err := copyFile(root, op); err != nil {
				return nil, errors.Wrapf(err, "package %s", op.dst)
			}
			placed[op.dst] = true
		}
		if r.Dest == IncludeDir {
			headers += len(ops)
		}
	}

	if headers == 0 {
		return nil, packagingErrorf("no headers found under %s", filepath.Join(b.SourceDir, "src"))
	}
	files := slices.Sorted(maps.Keys(placed))
	for _, lib := range b.libs() {
		if !hasLib(files, lib) {
			return nil, packagingErrorf("library %s: no artifact in %s/ or %s/", lib, LibDir, BinDir)
		}
	}
	return files, nil
}

func hasLib(files []string, lib string) bool {
	for _, f := range files {
		dir, name := filepath.Split(filepath.FromSlash(f))
		dir = filepath.Clean(dir)
		if (dir == LibDir || dir == BinDir) && providesLib(name, lib) {
			return true
		}
	}
	return false
}

func (b *Builder) cmakeSource() string {
	dir := b.CMakeDir
	if dir == "" {
		dir = DefaultCMakeDir
	}
	return filepath.Join(b.SourceDir, dir)
}

func (b *Builder) libs() []string {
	if b.Libs != nil {
		return b.Libs
	}
	return recipe.Libs()
}

func (b *Builder) describe(defs configure.Definitions, files []string) *Descriptor {
	d := &Descriptor{
		Name:        recipe.Name,
		Version:     recipe.Version,
		Description: recipe.Description,
		Author:      recipe.Author,
		URL:         recipe.URL,
		Topics:      slices.Clone(recipe.Topics),
		Libs:        b.libs(),
		IncludeDirs: []string{IncludeDir},
		LibDirs:     []string{LibDir},
		BinDirs:     []string{BinDir},
		Settings:    b.Settings,
		Options:     b.Options.Pairs(),
		Definitions: defs.Map(),
		Files:       files,
		BuildTime:   time.Now().UTC().Truncate(time.Second),
	}
	for _, v := range b.Requires {
		d.Requires = append(d.Requires, v.String())
	}
	return d
}
