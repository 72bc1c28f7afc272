package internal

import (
	"fmt"
	"path/filepath"

	"github.com/daixian/dnetpkg/internal/env"
	"github.com/daixian/dnetpkg/internal/verify"
	"github.com/spf13/cobra"
)

var (
	testBinary string
	testReport string
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the dnet test package against a package",
	Long: `Test builds the test package against an installed dnet package when test_dir
is configured, imports the package's shared libraries next to the test binary
and runs it. The command exits with the exit code of the test binary. When
the package targets another platform than the host, nothing is run.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	testCmd.Flags().StringVar(&testBinary, "binary", verify.DefaultBinary, "Test binary name in the execution directory")
	testCmd.Flags().StringVar(&testReport, "report", verify.DefaultReport, "gtest XML report path, relative to the execution directory")
	testCmd.Flags().String("test-dir", "", "Test package source directory")
	testCmd.Flags().String("exec-dir", "", "Directory the test binary runs in")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	opts, err := targetOptions()
	if err != nil {
		return err
	}
	h := &verify.Harness{
		PackageDir: cfg.PackageDir,
		ExecDir:    cfg.ExecDir,
		Binary:     testBinary,
		Report:     testReport,
		Stdout:     cmd.OutOrStdout(),
		Logger:     logger.WithPrefix("test"),
	}
	// Without -s flags the target comes from the package descriptor.
	if len(settingArgs) > 0 {
		if h.Settings, err = targetSettings(); err != nil {
			return err
		}
	}
	if h.PackageDir == "" {
		settings, err := targetSettings()
		if err != nil {
			return err
		}
		profile, err := cfg.ProfileValue()
		if err != nil {
			return err
		}
		if h.PackageDir, err = env.PackageDir(settings, profile, opts); err != nil {
			return err
		}
	}
	if cfg.TestDir != "" {
		buildDir := cfg.ExecDir
		if buildDir == "" {
			buildDir = filepath.Join(cfg.TestDir, "build")
		}
		native, err := newCMake(cmd, cfg.TestDir, buildDir)
		if err != nil {
			return err
		}
		h.Native = native
		if cfg.CMakeArgs != "" {
			h.Args = []string{cfg.CMakeArgs}
		}
	}

	res, err := h.Run(cmd.Context())
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "skipped: cross building")
		return nil
	}
	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode}
	}
	return nil
}
