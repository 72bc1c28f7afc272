// Package vcs fetches the dnet sources from their git remote.
package vcs

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// VCS defines the interface for version control operations.
type VCS interface {
	// Sync ensures the local repo exists and is at the specified ref.
	// ref can be branch, tag, or commit hash.
	// If dir doesn't exist, it is initialized and the ref fetched.
	Sync(ctx context.Context, remote, ref, dir string) error

	// Tags returns all tags from the remote repository.
	Tags(ctx context.Context, remote string) ([]string, error)

	// Latest returns the latest commit hash (HEAD) from the remote repository.
	Latest(ctx context.Context, remote string) (string, error)
}

// Git implements VCS with the git command line.
type Git struct {
	git    string
	logger *log.Logger
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		g.git = path
	}
}

// WithLogger sets the logger commands are traced to.
func WithLogger(l *log.Logger) GitOption {
	return func(g *Git) {
		g.logger = l
	}
}

// NewGit creates a new git VCS instance.
func NewGit(opts ...GitOption) *Git {
	g := &Git{git: "git", logger: log.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ VCS = (*Git)(nil)

func (g *Git) ensureInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return g.run(ctx, dir, "init", "--quiet")
	}
	return nil
}

func (g *Git) Sync(ctx context.Context, remote, ref, dir string) error {
	if err := g.ensureInit(ctx, dir); err != nil {
		return err
	}
	if err := g.run(ctx, dir, "fetch", "--depth", "1", remote, ref); err != nil {
		return errors.Wrapf(err, "fetch %s %s", remote, ref)
	}
	if err := g.run(ctx, dir, "checkout", "--quiet", "--force", "FETCH_HEAD"); err != nil {
		return errors.Wrapf(err, "checkout %s", ref)
	}
	return nil
}

func (g *Git) Tags(ctx context.Context, remote string) ([]string, error) {
	output, err := g.output(ctx, "", "ls-remote", "--tags", "--refs", remote)
	if err != nil {
		return nil, errors.Wrap(err, "list remote tags")
	}

	var tags []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		// format: <hash>\trefs/tags/<tag>
		if _, ref, ok := strings.Cut(line, "\t"); ok {
			tags = append(tags, strings.TrimPrefix(ref, "refs/tags/"))
		}
	}
	return tags, nil
}

func (g *Git) Latest(ctx context.Context, remote string) (string, error) {
	output, err := g.output(ctx, "", "ls-remote", remote, "HEAD")
	if err != nil {
		return "", errors.Wrap(err, "get remote HEAD")
	}
	hash, _, _ := strings.Cut(strings.TrimSpace(output), "\t")
	if hash == "" {
		return "", errors.Newf("no HEAD found in remote %s", remote)
	}
	return hash, nil
}

// LatestTag returns the highest semver tag of remote matching constraint,
// or any release tag when constraint is empty. Tags that are not versions
// are ignored.
func LatestTag(ctx context.Context, v VCS, remote, constraint string) (string, error) {
	var c *semver.Constraints
	if constraint != "" {
		var err error
		if c, err = semver.NewConstraint(constraint); err != nil {
			return "", errors.Wrapf(err, "constraint %q", constraint)
		}
	}
	tags, err := v.Tags(ctx, remote)
	if err != nil {
		return "", err
	}

	var best *semver.Version
	var bestTag string
	for _, tag := range tags {
		ver, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}
		if c != nil && !c.Check(ver) {
			continue
		}
		if best == nil || ver.GreaterThan(best) {
			best, bestTag = ver, tag
		}
	}
	if best == nil {
		return "", errors.Newf("no tag of %s matches %q", remote, constraint)
	}
	return bestTag, nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *Git) output(ctx context.Context, dir string, args ...string) (string, error) {
	g.logger.Debug("git", "args", args, "dir", dir)
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", errors.Newf("git %s: %s", args[0], msg)
		}
		return "", errors.Wrapf(err, "git %s", args[0])
	}
	return stdout.String(), nil
}
