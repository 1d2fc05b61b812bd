// Package selector decides which workspace crates are published, packaged and
// released, and which crate owns the shared release naming.
package selector

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
)

// MaxLookups bounds concurrent registry lookups.
const MaxLookups = 8

var (
	// ErrNoReleaseCrate means no selected crate can own the release.
	ErrNoReleaseCrate = errors.New(messages.SelectorNoReleaseCrate)
	// ErrNothingToPublish means a publish-only run found nothing new to publish.
	ErrNothingToPublish = errors.New(messages.SelectorNothingToPublish)
)

// Lookup answers whether a crate version is already on the registry.
type Lookup interface {
	IsVersionPublished(ctx context.Context, name, version string) bool
}

// Options carries the selection switches.
type Options struct {
	// Crates filters which local crates are packaged and released.
	Crates *patterns.List
	// Publish enables publishing at all.
	Publish bool
	// AllCrates publishes every local crate rather than only the filtered ones.
	AllCrates bool
	// CrateOnly stops the run after publishing.
	CrateOnly bool
	// Separately keeps published crates out of packaging and release.
	Separately bool
}

// Selection is the outcome of crate selection.
type Selection struct {
	// Release holds the crates to build, package and release.
	Release []cargo.Package
	// Publish holds the crates to publish, in workspace order.
	Publish []cargo.Package
	// AlreadyPublished holds candidates the registry already has.
	AlreadyPublished []cargo.Package
	// ReleaseCrate owns shared naming. Zero when selection stopped early.
	ReleaseCrate cargo.Package
}

// Select applies the filters to the local crates.
func Select(ctx context.Context, local []cargo.Package, opts Options, lookup Lookup, log *zap.Logger) (Selection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	matched := patterns.MatchManyBy(opts.Crates, local, func(p cargo.Package) string { return p.Name })

	var candidates []cargo.Package
	if opts.Publish {
		pool := matched
		if opts.AllCrates {
			pool = local
		}
		for _, p := range pool {
			if p.IsPublishable() {
				candidates = append(candidates, p)
			}
		}
	}

	published, err := lookupAll(ctx, candidates, lookup)
	if err != nil {
		return Selection{}, err
	}
	var sel Selection
	for i, p := range candidates {
		if published[i] {
			log.Info("crate version already published", zap.String("crate", p.Name), zap.String("version", p.Version))
			sel.AlreadyPublished = append(sel.AlreadyPublished, p)
			continue
		}
		sel.Publish = append(sel.Publish, p)
	}

	sel.Release = matched
	if opts.Separately {
		sel.Release = nil
		for _, p := range matched {
			if !cargo.ContainsID(candidates, p.ID) {
				sel.Release = append(sel.Release, p)
			}
		}
	}

	if opts.CrateOnly {
		if len(sel.Publish) == 0 {
			return sel, ErrNothingToPublish
		}
		return sel, nil
	}

	releaseCrate, err := ReleaseCrate(opts.Crates.Patterns(), sel.Release)
	if err != nil {
		return sel, err
	}
	sel.ReleaseCrate = releaseCrate
	return sel, nil
}

// ReleaseCrate picks the crate owning shared naming. With the catch-all
// filter it is the alphabetically first binary crate; otherwise it is the
// first crate, in workspace order, matching the first filter pattern.
func ReleaseCrate(filter []string, crates []cargo.Package) (cargo.Package, error) {
	if len(filter) == 0 {
		return cargo.Package{}, ErrNoReleaseCrate
	}
	if len(filter) == 1 && filter[0] == "*" {
		var bins []cargo.Package
		for _, p := range crates {
			if p.IsBinary() {
				bins = append(bins, p)
			}
		}
		if len(bins) == 0 {
			return cargo.Package{}, ErrNoReleaseCrate
		}
		sort.SliceStable(bins, func(i, j int) bool { return bins[i].Name < bins[j].Name })
		return bins[0], nil
	}

	first, err := patterns.New(filter[:1])
	if err != nil {
		return cargo.Package{}, err
	}
	for _, p := range crates {
		if first.MatchOne(p.Name) {
			return p, nil
		}
	}
	return cargo.Package{}, ErrNoReleaseCrate
}

func lookupAll(ctx context.Context, crates []cargo.Package, lookup Lookup) ([]bool, error) {
	out := make([]bool, len(crates))
	if lookup == nil || len(crates) == 0 {
		return out, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxLookups)
	for i, p := range crates {
		g.Go(func() error {
			out[i] = lookup.IsVersionPublished(ctx, p.Name, p.Version)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
