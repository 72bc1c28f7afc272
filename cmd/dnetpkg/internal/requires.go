package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/daixian/dnetpkg/internal/config"
	"github.com/daixian/dnetpkg/internal/requires"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/spf13/cobra"
)

var (
	requiresRole    string
	requiresResolve bool
)

var requiresCmd = &cobra.Command{
	Use:   "requires",
	Short: "Print the dependencies of dnet",
	Long: `Requires prints the requirement list of the selected profile. The main role
lists what the dnet package links against; the test role adds what the test
package needs, including build-only tools.`,
	Args: cobra.NoArgs,
	RunE: runRequires,
}

func init() {
	requiresCmd.Flags().StringVar(&requiresRole, "role", "main", "Requirement role: main or test")
	requiresCmd.Flags().BoolVar(&requiresResolve, "resolve", false, "Resolve against the versions index")
	rootCmd.AddCommand(requiresCmd)
}

func runRequires(cmd *cobra.Command, args []string) error {
	role, err := requires.ParseRole(requiresRole)
	if err != nil {
		return err
	}
	reqs, err := requirements(role)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !requiresResolve {
		printRequirements(out, reqs)
		return nil
	}
	resolved, err := resolve(cmd.Context(), reqs, true)
	if err != nil {
		return err
	}
	for _, v := range resolved {
		fmt.Fprintln(out, v)
	}
	return nil
}

// requirements returns the requirement list of the configured profile with
// dependency options applied.
func requirements(role requires.Role) ([]module.Requirement, error) {
	profile, err := cfg.ProfileValue()
	if err != nil {
		return nil, err
	}
	opts, err := targetOptions()
	if err != nil {
		return nil, err
	}
	reqs, err := requires.For(profile, role)
	if err != nil {
		return nil, err
	}
	reqs, unused := requires.ApplyOptions(reqs, opts)
	for _, dep := range unused {
		logger.Warn("option for unknown dependency", "dep", dep, "profile", profile, "role", role)
	}
	return reqs, nil
}

func printRequirements(w io.Writer, reqs []module.Requirement) {
	for _, r := range reqs {
		line := r.String()
		if r.Kind == module.BuildOnly {
			line += " (build)"
		}
		if pairs := r.OptionPairs(); len(pairs) > 0 {
			line += " " + strings.Join(pairs, " ")
		}
		fmt.Fprintln(w, line)
	}
}

// resolve picks versions from the configured index. Unless required, a
// missing default index skips resolution; a configured one must exist.
func resolve(ctx context.Context, reqs []module.Requirement, required bool) ([]module.Version, error) {
	if cfg.Index == "" {
		return nil, nil
	}
	if _, err := os.Stat(cfg.Index); os.IsNotExist(err) && !required && cfg.Index == config.DefaultIndex {
		logger.Warn("no versions index, skipping resolution", "index", cfg.Index)
		return nil, nil
	}
	r, err := requires.NewIndexResolver(cfg.Index)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, reqs)
}
