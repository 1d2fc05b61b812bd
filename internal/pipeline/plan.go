package pipeline

import (
	"context"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/selector"
	"github.com/conn-castle/release-rust/internal/tagger"
)

// Plan is what a run would do, computed without side effects.
type Plan struct {
	Local     []cargo.Package
	Selection selector.Selection
	// Tags are the tag names a run would need, assuming every publish succeeds.
	Tags []string
	// Releases are the tag names that would get a release.
	Releases []string
}

// Plan loads the workspace and runs crate selection, including the
// registry lookups, but publishes, builds and tags nothing.
func (p *Pipeline) Plan(ctx context.Context) (Plan, error) {
	local, sel, err := p.selectCrates(ctx)
	plan := Plan{Local: local, Selection: sel}
	if err != nil {
		return plan, err
	}
	cfg := p.Config
	if cfg.Publish.CrateOnly || !cfg.Tag.Enabled {
		return plan, nil
	}

	m := &tagger.Manager{Options: tagger.Options{
		Enabled:  cfg.Tag.Enabled,
		Name:     cfg.Tag.Name,
		PerCrate: cfg.TagPerCrate(),
		Crates:   cfg.Tag.Crates,
		Target:   cfg.Setup.Target,
	}}
	for _, c := range m.Targets(sel.ReleaseCrate, sel.Publish) {
		name := m.TagName(c, sel.ReleaseCrate)
		plan.Tags = append(plan.Tags, name)
		if !cfg.Release.Enabled {
			continue
		}
		if cfg.Release.Separately || c.ID == sel.ReleaseCrate.ID {
			plan.Releases = append(plan.Releases, name)
		}
	}
	return plan, nil
}
