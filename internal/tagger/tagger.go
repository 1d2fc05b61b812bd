// Package tagger creates release tags for crates, skipping tags that already exist.
package tagger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/template"
)

// Repository is the VCS surface the tagger needs.
type Repository interface {
	FetchTags(ctx context.Context) error
	ListTags(ctx context.Context) ([]string, error)
	CreateTag(ctx context.Context, name, message string, sign bool) error
	PushTags(ctx context.Context) error
}

// Tag pairs a tag name with the crate it marks.
type Tag struct {
	Name  string
	Crate cargo.Package
}

// Options configures tagging.
type Options struct {
	Enabled bool
	// Name is the tag name template; empty uses the crate version.
	Name string
	Sign bool
	// PerCrate tags each published crate instead of only the release crate.
	PerCrate bool
	// Crates allows tagging published crates in per-crate mode.
	Crates bool
	Target string
}

// Manager creates tags for one run.
type Manager struct {
	Repo    Repository
	Options Options
	Log     *zap.Logger
}

// Tag creates the run's tags and pushes them. It returns every tag that
// should exist for the run, including ones that were already present.
func (m *Manager) Tag(ctx context.Context, release cargo.Package, published []cargo.Package) ([]Tag, error) {
	if !m.Options.Enabled {
		return nil, nil
	}
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}

	if err := m.Repo.FetchTags(ctx); err != nil {
		return nil, fmt.Errorf(messages.TagFetchFmt, err)
	}
	listed, err := m.Repo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf(messages.TagListFmt, err)
	}
	existing := make(map[string]bool, len(listed))
	for _, t := range listed {
		existing[t] = true
	}

	var tags []Tag
	for _, crate := range m.Targets(release, published) {
		name := m.TagName(crate, release)
		tags = append(tags, Tag{Name: name, Crate: crate})
		if existing[name] {
			log.Info("tag already exists", zap.String("tag", name))
			continue
		}
		log.Info("creating tag", zap.String("tag", name), zap.Bool("signed", m.Options.Sign))
		if err := m.Repo.CreateTag(ctx, name, Message(crate, release), m.Options.Sign); err != nil {
			return nil, fmt.Errorf(messages.TagCreateFmt, name, err)
		}
		existing[name] = true
	}

	if err := m.Repo.PushTags(ctx); err != nil {
		return nil, fmt.Errorf(messages.TagPushFmt, err)
	}
	return tags, nil
}

// Targets lists the crates to tag. Shared mode tags only the release crate;
// per-crate mode tags each published crate (when enabled) and always the
// release crate.
func (m *Manager) Targets(release cargo.Package, published []cargo.Package) []cargo.Package {
	if !m.Options.PerCrate {
		return []cargo.Package{release}
	}
	var out []cargo.Package
	if m.Options.Crates {
		out = append(out, published...)
	}
	if !cargo.ContainsID(out, release.ID) {
		out = append(out, release)
	}
	return out
}

// TagName renders the tag name for crate.
func (m *Manager) TagName(crate, release cargo.Package) string {
	tmpl := m.Options.Name
	if tmpl == "" {
		tmpl = crate.Version
	}
	ctx := template.ForCrate(m.Options.Target, crate.Name, crate.Version, release.Name, release.Version)
	return template.Render(tmpl, ctx)
}

// Message is the annotation for crate's tag.
func Message(crate, release cargo.Package) string {
	if crate.ID == release.ID {
		return fmt.Sprintf(messages.TagMessageFmt, crate.Name, crate.Version)
	}
	return fmt.Sprintf(messages.TagMessageOtherFmt, crate.Name, crate.Version, release.Version)
}
