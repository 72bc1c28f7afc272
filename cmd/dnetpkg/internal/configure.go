package internal

import (
	"fmt"

	"github.com/daixian/dnetpkg/internal/configure"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Print the build definitions for a target",
	Long: `Configure derives the CMake definitions dnet is built with for the target
settings and options, after platform policy is applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	settings, err := targetSettings()
	if err != nil {
		return err
	}
	opts, err := targetOptions()
	if err != nil {
		return err
	}

	defs := configure.Configure(settings, opts)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "settings: %s\n", settings)
	fmt.Fprintf(out, "definitions: %s\n", defs)
	fmt.Fprintf(out, "cmake: %s\n", shellquote.Join(cmakeArgs(settings, defs)...))
	return nil
}

// cmakeArgs renders every -D argument a build with defs receives.
func cmakeArgs(settings recipe.Settings, defs configure.Definitions) []string {
	return append(defs.Args(), configure.ToolchainArgs(settings, recipe.HostSettings())...)
}
