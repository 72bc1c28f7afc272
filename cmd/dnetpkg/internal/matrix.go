package internal

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/internal/configure"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/spf13/cobra"
)

var (
	matrixRequire []string
	matrixOptions []string
	matrixMax     int
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Print the build definitions of every combination of a matrix",
	Long: `Matrix enumerates the cartesian product of setting and option values and
prints the definitions each combination would be built with. Nothing is built.

Example:
  dnetpkg matrix --require os=Linux,Android,iOS --matrix-option shared=True,False`,
	Args: cobra.NoArgs,
	RunE: runMatrix,
}

func init() {
	matrixCmd.Flags().StringArrayVar(&matrixRequire, "require", nil, "Setting values key=v1,v2")
	matrixCmd.Flags().StringArrayVar(&matrixOptions, "matrix-option", nil, "Option values name=v1,v2")
	matrixCmd.Flags().IntVar(&matrixMax, "max-combinations", 64, "Refuse matrices with more combinations")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	settings, err := recipe.ParseSettings(settingArgs, cfg.Settings)
	if err != nil {
		return err
	}
	opts, err := targetOptions()
	if err != nil {
		return err
	}

	m := recipe.Matrix{}
	if m.Require, err = parseAxes(matrixRequire); err != nil {
		return err
	}
	if m.Options, err = parseAxes(matrixOptions); err != nil {
		return err
	}
	if n := m.CombinationCount(); n > matrixMax {
		return errors.Mark(errors.Newf("matrix has %d combinations, more than --max-combinations=%d", n, matrixMax), recipe.ErrConfiguration)
	}
	combos, err := m.Combinations(settings, opts)
	if err != nil {
		return err
	}
	if combos == nil {
		combos = []recipe.Combination{{Settings: settings, Options: opts}}
	}

	out := cmd.OutOrStdout()
	for _, c := range combos {
		if err := c.Settings.Validate(); err != nil {
			return errors.Wrapf(err, "combination %s", c.Key)
		}
		defs := configure.Configure(c.Settings, c.Options)
		key := c.Key
		if key == "" {
			key = "default"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", key, c.Settings, defs)
	}
	return nil
}

// parseAxes parses "key=v1,v2" flags into matrix axes.
func parseAxes(flags []string) (map[string][]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	axes := make(map[string][]string, len(flags))
	for _, f := range flags {
		key, values, ok := strings.Cut(f, "=")
		if !ok || key == "" || values == "" {
			return nil, errors.Mark(errors.Newf("malformed matrix axis %q, want key=v1,v2", f), recipe.ErrConfiguration)
		}
		for _, v := range strings.Split(values, ",") {
			axes[key] = append(axes[key], strings.TrimSpace(v))
		}
	}
	return axes, nil
}
