package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/config"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	verbose     bool
	settingArgs []string
	optionArgs  []string

	vp     = config.New()
	cfg    *config.Config
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dnetpkg"})
)

var rootCmd = &cobra.Command{
	Use:   "dnetpkg",
	Short: "dnetpkg builds and packages the dnet communication library",
	Long: `dnetpkg resolves the dependencies of dnet, configures and compiles it with CMake
for a target platform, packages headers and libraries, and runs the test package.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./"+config.FileName+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringArrayVarP(&settingArgs, "setting", "s", nil, "Target setting key=value (os, compiler, arch, build_type)")
	flags.StringArrayVarP(&optionArgs, "option", "o", nil, "Option name=value, or dep:name=value for a dependency")
	flags.String("profile", "", "Requirement profile: scripting or portability")
	flags.String("source", "", "dnet source directory")
	flags.String("build-dir", "", "Native build directory")
	flags.String("package-dir", "", "Package directory")
	flags.String("index", "", "Versions index used to resolve requirements")
	flags.String("cmake-args", "", "Extra shell-quoted arguments for the CMake configure step")
	flags.String("toolchain", "", "CMake toolchain file for cross builds")
}

// flagKeys maps config keys to the flags overriding them.
var flagKeys = map[string]string{
	"profile":     "profile",
	"source_dir":  "source",
	"build_dir":   "build-dir",
	"package_dir": "package-dir",
	"index":       "index",
	"cmake_args":  "cmake-args",
	"toolchain":   "toolchain",
	"test_dir":    "test-dir",
	"exec_dir":    "exec-dir",
}

func loadConfig(cmd *cobra.Command, args []string) error {
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := vp.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("ignoring .env", "err", err)
	}
	return readConfig(vp)
}

func readConfig(v *viper.Viper) error {
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// targetSettings returns the configured settings with -s flags applied.
func targetSettings() (recipe.Settings, error) {
	return cfg.RecipeSettings(settingArgs)
}

// targetOptions returns the configured options with -o flags applied.
func targetOptions() (recipe.Options, error) {
	return cfg.RecipeOptions(optionArgs)
}

// exitError makes the process exit with code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	logger.Error(err)
	os.Exit(1)
}
