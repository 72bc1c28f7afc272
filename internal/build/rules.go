package build

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// Tree selects which directory a Rule searches.
type Tree int

const (
	// SourceTree is the checked-out dnet sources.
	SourceTree Tree = iota
	// BuildTree is the native build output directory.
	BuildTree
)

func (t Tree) String() string {
	if t == BuildTree {
		return "build"
	}
	return "source"
}

// Package layout directories.
const (
	IncludeDir = "include"
	LibDir     = "lib"
	BinDir     = "bin"
)

// Rule copies files matching Pattern under Dir of a tree into Dest of the
// package. KeepPath preserves the path relative to Dir; otherwise files are
// flattened.
type Rule struct {
	Pattern  string
	From     Tree
	Dir      string
	Dest     string
	KeepPath bool
}

// DefaultRules is the dnet artifact table. Rules apply in order; a later
// flattened file with the same name replaces an earlier one.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "**/*.h", From: SourceTree, Dir: "src", Dest: IncludeDir, KeepPath: true},
		{Pattern: "**/*.lib", From: BuildTree, Dest: LibDir},
		{Pattern: "**/*.dll", From: BuildTree, Dest: BinDir},
		{Pattern: "**/*.dylib*", From: BuildTree, Dest: LibDir},
		{Pattern: "**/*.so", From: BuildTree, Dest: LibDir},
		{Pattern: "**/*.a", From: BuildTree, Dest: LibDir},
	}
}

// copyOp is one file placed into the package, both paths slash-separated.
type copyOp struct {
	src string // absolute, OS form
	dst string // relative to the package root
}

// match lists the files a rule selects. Paths under skip are ignored so a
// build directory nested in the source tree is never packaged as sources.
func (r Rule) match(root, skip string) ([]copyOp, error) {
	dir := filepath.Join(root, filepath.FromSlash(r.Dir))
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	matches, err := doublestar.Glob(os.DirFS(dir), r.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "rule %s", r.Pattern)
	}
	slices.Sort(matches)

	var skipRel string
	if skip != "" {
		if rel, err := filepath.Rel(dir, skip); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			skipRel = filepath.ToSlash(rel) + "/"
		}
	}

	ops := make([]copyOp, 0, len(matches))
	for _, m := range matches {
		if skipRel != "" && strings.HasPrefix(m, skipRel) {
			continue
		}
		dst := path.Base(m)
		if r.KeepPath {
			dst = m
		}
		ops = append(ops, copyOp{
			src: filepath.Join(dir, filepath.FromSlash(m)),
			dst: path.Join(r.Dest, dst),
		})
	}
	return ops, nil
}

// copyFile copies src to dst under root, following symlinks in src.
func copyFile(root string, op copyOp) error {
	dst := filepath.Join(root, filepath.FromSlash(op.dst))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(op.src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// libFileStem reports the library name a packaged file provides, e.g.
// "libDNET.so.1" and "DNET.lib" both provide "DNET".
func libFileStem(name string) (string, bool) {
	stem, ext, ok := strings.Cut(name, ".")
	if !ok {
		return "", false
	}
	switch {
	case ext == "lib", ext == "a", ext == "dll", ext == "dylib",
		ext == "so", strings.HasPrefix(ext, "so."), strings.HasSuffix(ext, ".dylib"):
	default:
		return "", false
	}
	return stem, true
}

// providesLib reports whether a packaged file name provides lib.
func providesLib(name, lib string) bool {
	stem, ok := libFileStem(name)
	if !ok {
		return false
	}
	return stem == lib || stem == "lib"+lib
}
