package internal

import (
	"fmt"
	"path/filepath"

	"github.com/daixian/dnetpkg/internal/vcs"
	"github.com/daixian/dnetpkg/recipe"
	"github.com/spf13/cobra"
)

var (
	sourceRemote  string
	sourceRef     string
	sourceVersion string
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Fetch the dnet sources into the source directory",
	Long: `Source checks out the dnet sources from git into source_dir. Without --ref
the highest release tag matching --version is fetched.`,
	Args: cobra.NoArgs,
	RunE: runSource,
}

func init() {
	sourceCmd.Flags().StringVar(&sourceRemote, "remote", recipe.URL, "Git remote of the dnet sources")
	sourceCmd.Flags().StringVar(&sourceRef, "ref", "", "Branch, tag or commit to check out")
	sourceCmd.Flags().StringVar(&sourceVersion, "version", "", "Semver constraint on release tags, e.g. ^1.0")
	rootCmd.AddCommand(sourceCmd)
}

func runSource(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir, err := filepath.Abs(cfg.SourceDir)
	if err != nil {
		return err
	}

	git := vcs.NewGit(vcs.WithLogger(logger.WithPrefix("git")))
	ref := sourceRef
	if ref == "" {
		if ref, err = vcs.LatestTag(ctx, git, sourceRemote, sourceVersion); err != nil {
			return err
		}
	}
	logger.Info("fetching", "remote", sourceRemote, "ref", ref, "dir", dir)
	if err := git.Sync(ctx, sourceRemote, ref, dir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ref, dir)
	return nil
}
