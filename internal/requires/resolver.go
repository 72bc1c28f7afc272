package requires

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"github.com/daixian/dnetpkg/pkgs/mod/module"
	"github.com/daixian/dnetpkg/pkgs/mod/versions"
)

// Resolver turns requirements into concrete versions. Registries and
// dependency engines implement it; a failure must be marked ErrResolution.
type Resolver interface {
	Resolve(ctx context.Context, reqs []module.Requirement) ([]module.Version, error)
}

var _ Resolver = (*IndexResolver)(nil)

// IndexResolver resolves against a local versions index, picking the
// highest release that satisfies each requirement.
type IndexResolver struct {
	Index *versions.Versions
}

// NewIndexResolver loads the index file at path.
func NewIndexResolver(path string) (*IndexResolver, error) {
	idx, err := versions.Parse(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "load versions index %s", path)
	}
	return &IndexResolver{Index: idx}, nil
}

// Resolve implements Resolver. It stops at the first unsatisfiable
// requirement.
func (r *IndexResolver) Resolve(ctx context.Context, reqs []module.Requirement) ([]module.Version, error) {
	reqs, err := Dedupe(reqs)
	if err != nil {
		return nil, err
	}

	out := make([]module.Version, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := r.best(req)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *IndexResolver) best(req module.Requirement) (module.Version, error) {
	cs, err := req.Constraints()
	if err != nil {
		return module.Version{}, errors.Mark(errors.Wrapf(err, "requirement %s", req), ErrResolution)
	}

	var best *semver.Version
	for _, rel := range r.Index.Releases(req.Name, req.Channel) {
		v, err := semver.NewVersion(rel.Version)
		if err != nil {
			continue
		}
		if cs.Check(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	if best == nil {
		return module.Version{}, resolutionErrorf("no version of %s satisfies %s", req.Name, req)
	}
	return module.Version{Name: req.Name, Version: best.Original(), Channel: req.Channel}, nil
}
