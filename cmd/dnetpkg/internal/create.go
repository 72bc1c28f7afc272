package internal

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/build"
	"github.com/daixian/dnetpkg/internal/configure"
	"github.com/daixian/dnetpkg/internal/env"
	"github.com/daixian/dnetpkg/internal/requires"
	"github.com/daixian/dnetpkg/pkgs/buildsys/cmake"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var (
	createOutput string
	createUses   []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build and package dnet",
	Long: `Create resolves the dependencies of dnet, builds it with CMake for the target
settings and options, and packages headers and libraries. The package
descriptor is printed on success.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createOutput, "output", "", "Also export the package to a directory or .zip file")
	createCmd.Flags().StringArrayVar(&createUses, "use", nil, "Installed dependency package root passed to CMake")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings, err := targetSettings()
	if err != nil {
		return err
	}
	opts, err := targetOptions()
	if err != nil {
		return err
	}

	reqs, err := requirements(requires.Main)
	if err != nil {
		return err
	}
	resolved, err := resolve(ctx, reqs, false)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before build
	if createOutput != "" {
		if createOutput, err = filepath.Abs(createOutput); err != nil {
			return errors.Wrap(err, "resolve output path")
		}
	}
	profile, err := cfg.ProfileValue()
	if err != nil {
		return err
	}
	sourceDir, buildDir, packageDir, err := createDirs(settings, profile, opts)
	if err != nil {
		return err
	}

	native, err := newCMake(cmd, sourceDir, buildDir)
	if err != nil {
		return err
	}
	b := &build.Builder{
		Native:     native,
		SourceDir:  sourceDir,
		PackageDir: packageDir,
		Settings:   settings,
		Host:       recipe.HostSettings(),
		Options:    opts,
		Requires:   resolved,
		Uses:       createUses,
		Logger:     logger.WithPrefix("build"),
	}
	if cfg.CMakeArgs != "" {
		b.Args = []string{cfg.CMakeArgs}
	}

	d, err := b.Build(ctx, configure.Configure(settings, opts))
	if err != nil {
		var f *build.Failure
		if errors.As(err, &f) && !verbose {
			cmd.ErrOrStderr().Write(f.Output)
		}
		return err
	}

	if err := toml.NewEncoder(cmd.OutOrStdout()).Encode(d); err != nil {
		return err
	}
	if createOutput != "" {
		if err := outputResult(packageDir, createOutput); err != nil {
			return errors.Wrap(err, "write output")
		}
		logger.Info("exported", "to", createOutput)
	}
	return nil
}

// newCMake returns the CMake driver configured from the generator and
// toolchain settings.
func newCMake(cmd *cobra.Command, sourceDir, buildDir string) (*cmake.CMake, error) {
	native := cmake.New(sourceDir, buildDir).Generator(cfg.Generator).Logger(logger)
	if cfg.Toolchain != "" {
		toolchain, err := filepath.Abs(cfg.Toolchain)
		if err != nil {
			return nil, errors.Wrap(err, "resolve toolchain path")
		}
		native.Toolchain(toolchain)
	}
	if verbose {
		native.Stdout(cmd.ErrOrStderr())
	}
	return native, nil
}

// createDirs resolves the source, build and package directories, falling
// back to per-configuration directories in the work dir.
func createDirs(settings recipe.Settings, profile requires.Profile, opts recipe.Options) (source, build, pkg string, err error) {
	if source, err = filepath.Abs(cfg.SourceDir); err != nil {
		return
	}
	build, pkg = cfg.BuildDir, cfg.PackageDir
	if build == "" {
		if build, err = env.BuildDir(settings, profile, opts); err != nil {
			return
		}
	}
	if pkg == "" {
		if pkg, err = env.PackageDir(settings, profile, opts); err != nil {
			return
		}
	}
	if build, err = filepath.Abs(build); err != nil {
		return
	}
	pkg, err = filepath.Abs(pkg)
	return
}
