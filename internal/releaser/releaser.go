// Package releaser makes sure a GitHub release exists for each tag and
// uploads the packaged files to it.
package releaser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/github"
	"github.com/conn-castle/release-rust/internal/manifest"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
	"github.com/conn-castle/release-rust/internal/retry"
	"github.com/conn-castle/release-rust/internal/tagger"
	"github.com/conn-castle/release-rust/internal/template"
)

// API is the release surface of the hosting service.
type API interface {
	ReleaseByTag(ctx context.Context, tag string) (id int64, found bool, err error)
	CreateRelease(ctx context.Context, r github.NewRelease) (int64, error)
	UploadAsset(ctx context.Context, releaseID int64, path string) error
}

// Options configures releases.
type Options struct {
	// PerCrate releases each tag with its crate's files instead of one shared release.
	PerCrate bool
	// Names and Notes map crate names to name and body templates.
	Names  *patterns.Map
	Notes  *patterns.Map
	Latest config.LatestFlag
	Pre    config.PreFlag
	// Output is the package output directory.
	Output string
	Target string
}

// Manager creates releases and uploads assets.
type Manager struct {
	API     API
	Options Options
	// Lookups, Creates and Uploads default to retry.Network and retry.Upload.
	Lookups *retry.Policy
	Creates *retry.Policy
	Uploads *retry.Policy
	Log     *zap.Logger
}

// UploadReport counts the outcome of an upload batch.
type UploadReport struct {
	Attempted int
	Uploaded  int
	// Skipped counts files whose upload failed after retries.
	Skipped int
	// Missing counts files that could not be read.
	Missing int
}

// Result is the outcome for one tag.
type Result struct {
	Tag       string
	Crate     string
	ReleaseID int64
	Created   bool
	Upload    UploadReport
}

// Release processes the run's tags against the manifests.
func (m *Manager) Release(ctx context.Context, releaseCrate cargo.Package, tags []tagger.Tag, manifests []manifest.Crate) ([]Result, error) {
	if !m.Options.PerCrate {
		var tag *tagger.Tag
		for i := range tags {
			if tags[i].Crate.ID == releaseCrate.ID {
				tag = &tags[i]
				break
			}
		}
		if tag == nil {
			return nil, fmt.Errorf(messages.ReleaseNoTagFmt, releaseCrate.Name)
		}
		files, err := m.SharedFiles(manifests)
		if err != nil {
			return nil, err
		}
		res, err := m.releaseTag(ctx, *tag, releaseCrate, files)
		if err != nil {
			return nil, err
		}
		return []Result{res}, nil
	}

	var results []Result
	for _, tag := range tags {
		var files []string
		if entry, ok := manifest.Find(manifests, tag.Crate.Name); ok {
			files = manifest.PackageFiles(m.Options.Output, []manifest.Crate{entry})
		}
		res, err := m.releaseTag(ctx, tag, releaseCrate, files)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SharedFiles lists the non-hidden entries of the output directory, sorted,
// followed by any manifest package files not already listed.
func (m *Manager) SharedFiles(manifests []manifest.Crate) ([]string, error) {
	entries, err := os.ReadDir(m.Options.Output)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(messages.ReleaseListOutputFmt, m.Options.Output, err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(m.Options.Output, e.Name()))
	}
	sort.Strings(files)
	return dedupe(append(files, manifest.PackageFiles(m.Options.Output, manifests)...)), nil
}

func (m *Manager) releaseTag(ctx context.Context, tag tagger.Tag, releaseCrate cargo.Package, files []string) (Result, error) {
	res := Result{Tag: tag.Name, Crate: tag.Crate.Name}
	id, created, err := m.EnsureRelease(ctx, tag, releaseCrate)
	if err != nil {
		return res, err
	}
	res.ReleaseID = id
	res.Created = created
	res.Upload = m.Upload(ctx, id, files)
	return res, nil
}

// EnsureRelease returns the release for tag, creating it when absent. When
// creation fails because another run created it first, the existing release
// is used.
func (m *Manager) EnsureRelease(ctx context.Context, tag tagger.Tag, releaseCrate cargo.Package) (id int64, created bool, err error) {
	log := m.logger().With(zap.String("tag", tag.Name))
	if id, found := m.lookup(ctx, tag.Name); found {
		log.Info("release exists", zap.Int64("id", id))
		return id, false, nil
	}

	r := m.NewRelease(tag, releaseCrate)
	log.Info("creating release", zap.String("name", r.Name), zap.Bool("latest", r.Latest), zap.Bool("prerelease", r.Prerelease))
	createErr := m.create(ctx, r, &id)
	if createErr == nil {
		return id, true, nil
	}

	if id, found := m.lookup(ctx, tag.Name); found {
		log.Info("release created concurrently", zap.Int64("id", id))
		return id, false, nil
	}
	return 0, false, fmt.Errorf(messages.ReleaseCreateFmt, tag.Name, createErr)
}

// NewRelease renders the release fields for tag.
func (m *Manager) NewRelease(tag tagger.Tag, releaseCrate cargo.Package) github.NewRelease {
	crate := tag.Crate
	ctx := template.ForCrate(m.Options.Target, crate.Name, crate.Version, releaseCrate.Name, releaseCrate.Version).
		With(template.ReleaseTag, tag.Name)

	nameTmpl, ok := m.Options.Names.Lookup(crate.Name)
	if !ok {
		nameTmpl = "{crate-version}"
	}
	name := template.Render(nameTmpl, ctx)

	notesTmpl, _ := m.Options.Notes.Lookup(crate.Name)
	body := template.Render(notesTmpl, ctx.With(template.ReleaseName, name))

	return github.NewRelease{
		Tag:        tag.Name,
		Name:       name,
		Body:       body,
		Latest:     m.Options.Latest.For(crate.Name),
		Prerelease: m.Options.Pre.For(crate.Name),
	}
}

// Upload sends files to the release. Unreadable files and files that still
// fail after retries are logged and skipped.
func (m *Manager) Upload(ctx context.Context, releaseID int64, files []string) UploadReport {
	log := m.logger()
	files = dedupe(files)
	var report UploadReport
	policy := m.policy(m.Uploads, retry.Upload())
	for _, f := range files {
		if err := readable(f); err != nil {
			log.Warn("skipping unreadable file", zap.String("file", f), zap.Error(err))
			report.Missing++
			continue
		}
		report.Attempted++
		attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
			log.Debug("uploading asset", zap.String("file", f), zap.Int("attempt", attempt))
			return m.API.UploadAsset(ctx, releaseID, f)
		})
		if err != nil {
			log.Error("upload failed", zap.String("file", f), zap.Int("attempts", attempts), zap.Error(err))
			report.Skipped++
			continue
		}
		report.Uploaded++
		log.Info("uploaded asset", zap.String("file", filepath.Base(f)),
			zap.String("progress", fmt.Sprintf("%d/%d", report.Uploaded, len(files))))
	}
	return report
}

func (m *Manager) lookup(ctx context.Context, tag string) (int64, bool) {
	var id int64
	var found bool
	_, err := m.policy(m.Lookups, retry.Network()).Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		id, found, err = m.API.ReleaseByTag(ctx, tag)
		return err
	})
	if err != nil {
		m.logger().Warn("release lookup failed", zap.String("tag", tag), zap.Error(err))
		return 0, false
	}
	return id, found
}

func (m *Manager) create(ctx context.Context, r github.NewRelease, id *int64) error {
	_, err := m.policy(m.Creates, retry.Network()).Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		*id, err = m.API.CreateRelease(ctx, r)
		return err
	})
	return err
}

func (m *Manager) policy(p *retry.Policy, fallback retry.Policy) retry.Policy {
	if p != nil {
		return *p
	}
	return fallback
}

func (m *Manager) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf(messages.ReleaseAssetIsDirFmt, path)
	}
	return nil
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
