package cmake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/daixian/dnetpkg/pkgs/buildsys"
	"github.com/kballard/go-shellquote"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	SourceDir string
	buildDir  string
	generator string
	toolchain string
	program   string
	Defines   map[string]defineValue
	env       map[string]string
	stdout    io.Writer
	logger    *log.Logger
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake helper configuring sourceDir into buildDir.
func New(sourceDir, buildDir string) *CMake {
	if buildDir == "" {
		buildDir = filepath.Join(sourceDir, "build")
	}
	return &CMake{
		SourceDir: sourceDir,
		buildDir:  buildDir,
		program:   "cmake",
		Defines:   map[string]defineValue{},
		env:       map[string]string{},
		logger:    log.Default(),
	}
}

func (c *CMake) Source(dir string) {
	c.SourceDir = dir
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

// Toolchain sets CMAKE_TOOLCHAIN_FILE, which cross builds such as Android
// (NDK) or iOS need.
func (c *CMake) Toolchain(path string) *CMake {
	c.toolchain = path
	return c
}

// Program overrides the cmake executable.
func (c *CMake) Program(path string) *CMake {
	c.program = path
	return c
}

// Stdout mirrors tool output to w while it runs. Output is always captured
// for error reporting regardless.
func (c *CMake) Stdout(w io.Writer) *CMake {
	c.stdout = w
	return c
}

func (c *CMake) Logger(l *log.Logger) *CMake {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *CMake) Define(key, value string) {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
}

func (c *CMake) DefineBool(key string, value bool) {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	if value {
		c.Defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return
	}
	c.Defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
}

// Env sets a variable for the tool processes only.
func (c *CMake) Env(key, value string) {
	if c.env == nil {
		c.env = map[string]string{}
	}
	c.env[key] = value
}

// Use configures the build environment to consume the package installed at root.
func (c *CMake) Use(root string) {
	includeDir := filepath.Join(root, "include")
	libDir := filepath.Join(root, "lib")
	pkgconfigDir := filepath.Join(root, "lib", "pkgconfig")

	// PKG_CONFIG_PATH - pkg-config path (all platforms)
	if exists(pkgconfigDir) {
		c.prependEnv("PKG_CONFIG_PATH", pkgconfigDir)
	}

	// CMAKE paths (all platforms)
	if exists(root) {
		c.prependEnv("CMAKE_PREFIX_PATH", root)
	}
	if exists(includeDir) {
		c.prependEnv("CMAKE_INCLUDE_PATH", includeDir)
	}
	if exists(libDir) {
		c.prependEnv("CMAKE_LIBRARY_PATH", libDir)
	}

	// Platform-specific settings
	if runtime.GOOS == "windows" {
		// Windows MSVC environment variables
		if exists(includeDir) {
			c.prependEnv("INCLUDE", includeDir)
		}
		if exists(libDir) {
			c.prependEnv("LIB", libDir)
		}
	} else {
		// Unix (Linux/macOS) - GCC style flags
		if exists(includeDir) {
			c.appendFlag("CPPFLAGS", "-I"+includeDir)
		}
		if exists(libDir) {
			c.appendFlag("LDFLAGS", "-L"+libDir)
		}
	}
}

// Configure runs the configure step. Extra arguments may be passed as
// shell-quoted strings; each is split before being handed to cmake.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.SourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.toolchain != "" {
		c.Define("CMAKE_TOOLCHAIN_FILE", c.toolchain)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	extra, err := splitArgs(args)
	if err != nil {
		return err
	}
	cmakeArgs = append(cmakeArgs, extra...)

	return c.run(ctx, cmakeArgs)
}

func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.buildDir}
	if bt := c.configName(); bt != "" {
		cmdArgs = append(cmdArgs, "--config", bt)
	}
	extra, err := splitArgs(args)
	if err != nil {
		return err
	}
	cmdArgs = append(cmdArgs, extra...)
	return c.run(ctx, cmdArgs)
}

// OutputDir returns the build tree.
func (c *CMake) OutputDir() string {
	return c.buildDir
}

// Args returns the configure command line without running it.
func (c *CMake) Args() []string {
	return append([]string{"-S", c.SourceDir, "-B", c.buildDir}, c.definesArgs()...)
}

// configName is the build type for multi-config generators.
func (c *CMake) configName() string {
	return c.Defines["CMAKE_BUILD_TYPE"].value
}

func (c *CMake) definesArgs() []string {
	if len(c.Defines) == 0 {
		return nil
	}
	args := make([]string, 0, len(c.Defines))
	for _, k := range slices.Sorted(maps.Keys(c.Defines)) {
		def := c.Defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

func (c *CMake) run(ctx context.Context, args []string) error {
	line := shellquote.Join(append([]string{c.program}, args...)...)
	c.logger.Debug("run", "cmd", line)

	var out bytes.Buffer
	w := io.Writer(&out)
	if c.stdout != nil {
		w = io.MultiWriter(&out, c.stdout)
	}
	cmd := exec.CommandContext(ctx, c.program, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	if len(c.env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.env)
	}
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &buildsys.ExitError{Command: line, Code: code, Output: out.Bytes(), Err: err}
}

func splitArgs(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		words, err := shellquote.Split(a)
		if err != nil {
			return nil, err
		}
		out = append(out, words...)
	}
	return out, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	maps.Copy(envMap, override)
	out := make([]string, 0, len(envMap))
	for _, k := range slices.Sorted(maps.Keys(envMap)) {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// lookupEnv reads a variable from the helper's overrides, then the process.
func (c *CMake) lookupEnv(key string) string {
	if v, ok := c.env[key]; ok {
		return v
	}
	return os.Getenv(key)
}

// prependEnv prepends a value to an environment variable using the platform list separator.
func (c *CMake) prependEnv(key, value string) {
	current := c.lookupEnv(key)
	if current == "" {
		c.Env(key, value)
		return
	}
	c.Env(key, value+string(os.PathListSeparator)+current)
}

// appendFlag appends a flag to an environment variable (space-separated).
func (c *CMake) appendFlag(key, flag string) {
	current := c.lookupEnv(key)
	if current == "" {
		c.Env(key, flag)
		return
	}
	c.Env(key, strings.TrimSpace(current+" "+flag))
}
