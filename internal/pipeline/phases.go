package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/builder"
	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/packager"
	"github.com/conn-castle/release-rust/internal/releaser"
	"github.com/conn-castle/release-rust/internal/selector"
	"github.com/conn-castle/release-rust/internal/setup"
	"github.com/conn-castle/release-rust/internal/signer"
	"github.com/conn-castle/release-rust/internal/tagger"
)

// Setup installs the toolchain and configures git.
func (p *Pipeline) Setup(ctx context.Context, s State) (State, error) {
	if p.SkipSetup {
		p.logger().Info("skipping setup")
		return s, nil
	}
	cfg := p.Config
	st := &setup.Setup{
		Runner: p.Runner,
		Git:    p.Repo,
		Options: setup.Options{
			Toolchain:    cfg.Setup.Toolchain,
			Target:       cfg.Setup.Target,
			Components:   cfg.Extras.RustupComponents,
			BuildStd:     cfg.Build.BuildStd,
			Cross:        cfg.Build.UseCross,
			CrossVersion: cfg.Setup.CrossVersion,
			SignTags:     cfg.Tag.Enabled && cfg.Tag.Sign,
			SignPackages: cfg.Package.Sign,
			CI:           cfg.Runner.CI,
		},
		Log: p.Log,
	}
	return s, st.Run(ctx)
}

// Publish loads the workspace, selects crates and publishes the new ones in
// order. The first failed publish aborts the run.
func (p *Pipeline) Publish(ctx context.Context, s State) (State, error) {
	local, sel, err := p.selectCrates(ctx)
	if err != nil {
		return s, err
	}
	s.Local = local
	s.Selection = sel

	published := make([]cargo.Package, 0, len(sel.Publish))
	for _, c := range sel.Publish {
		if err := p.Cargo.Publish(ctx, c.Name, p.Config.Registry.Token); err != nil {
			return s, err
		}
		published = append(published, c)
	}
	s.Published = published
	s.Done = p.Config.Publish.CrateOnly
	return s, nil
}

func (p *Pipeline) selectCrates(ctx context.Context) ([]cargo.Package, selector.Selection, error) {
	meta, err := p.Cargo.Metadata(ctx)
	if err != nil {
		return nil, selector.Selection{}, err
	}
	local := meta.LocalPackages()
	cfg := p.Config
	sel, err := selector.Select(ctx, local, selector.Options{
		Crates:     cfg.Build.Crates,
		Publish:    cfg.Publish.Crate,
		AllCrates:  cfg.Publish.AllCrates,
		CrateOnly:  cfg.Publish.CrateOnly,
		Separately: cfg.Release.Separately,
	}, p.Registry, p.Log)
	return local, sel, err
}

// Build compiles the crates to release.
func (p *Pipeline) Build(ctx context.Context, s State) (State, error) {
	if len(s.Selection.Release) == 0 {
		p.logger().Info("no crates to build")
		return s, nil
	}
	cfg := p.Config
	b := &builder.Builder{
		Runner: p.Runner,
		Hooks:  p.hooks(s),
		Options: builder.Options{
			Target:     cfg.Setup.Target,
			Cross:      cfg.Build.UseCross,
			Features:   cfg.Build.Features,
			BuildStd:   cfg.Build.BuildStd,
			DebugInfo:  cfg.Build.DebugInfo,
			MuslLibGcc: cfg.Build.MuslLibGcc,
			CrtStatic:  cfg.Build.CrtStatic,
			CargoFlags: cfg.Extras.CargoFlags,
			RustcFlags: cfg.Extras.RustcFlags,
			Vars:       p.BaseVars(s.RunID),
			Dir:        cfg.Root,
		},
		Log:    p.Log,
		Getenv: p.Getenv,
	}
	out, err := b.Build(ctx, s.Selection.Release)
	if err != nil {
		return s, err
	}
	s.BuildOutput = out
	return s, nil
}

// Package archives the built crates into the output directory. The output
// directory exists afterwards even when nothing was packaged.
func (p *Pipeline) Package(ctx context.Context, s State) (State, error) {
	cfg := p.Config
	if len(s.Selection.Release) == 0 {
		p.logger().Info("no crates to package")
		if err := os.MkdirAll(cfg.Package.Output, 0o755); err != nil {
			return s, fmt.Errorf(messages.PackageOutputDirFmt, cfg.Package.Output, err)
		}
		return s, nil
	}
	pk := &packager.Packager{
		Runner: p.Runner,
		Hooks:  p.hooks(s),
		Options: packager.Options{
			Archive:    cfg.Package.Archive,
			Files:      cfg.Package.Files,
			Name:       cfg.Package.Name,
			InDir:      cfg.Package.InDir,
			Separately: cfg.Package.Separately,
			ShortExt:   cfg.Package.ShortExt,
			Output:     cfg.Package.Output,
			Target:     cfg.Setup.Target,
			Root:       cfg.Root,
			Windows:    p.Windows,
			TempDir:    p.TempDir,
		},
		Log: p.Log,
	}
	res, err := pk.Package(ctx, s.Selection.Release, s.Selection.ReleaseCrate, s.BuildOutput)
	if err != nil {
		return s, err
	}
	s.Packaging = res
	return s, nil
}

// Sign signs the files in the output directory.
func (p *Pipeline) Sign(ctx context.Context, s State) (State, error) {
	cfg := p.Config
	sg := &signer.Signer{
		Runner:      p.Runner,
		Enabled:     cfg.Package.Sign,
		Output:      cfg.Package.Output,
		CosignFlags: cfg.Extras.CosignFlags,
		Vars:        p.BaseVars(s.RunID),
		Log:         p.Log,
		Getenv:      p.Getenv,
	}
	report, err := sg.Sign(ctx)
	if err != nil {
		return s, err
	}
	s.Signed = report
	return s, nil
}

// Tag creates and pushes the run's tags.
func (p *Pipeline) Tag(ctx context.Context, s State) (State, error) {
	cfg := p.Config
	m := &tagger.Manager{
		Repo: p.Repo,
		Options: tagger.Options{
			Enabled:  cfg.Tag.Enabled,
			Name:     cfg.Tag.Name,
			Sign:     cfg.Tag.Sign,
			PerCrate: cfg.TagPerCrate(),
			Crates:   cfg.Tag.Crates,
			Target:   cfg.Setup.Target,
		},
		Log: p.Log,
	}
	tags, err := m.Tag(ctx, s.Selection.ReleaseCrate, s.Published)
	if err != nil {
		return s, err
	}
	s.Tags = tags
	return s, nil
}

// Release creates the releases for the run's tags and uploads the packages.
func (p *Pipeline) Release(ctx context.Context, s State) (State, error) {
	cfg := p.Config
	if !cfg.Release.Enabled {
		p.logger().Info("skipping release")
		return s, nil
	}
	if p.GitHub == nil {
		return s, errors.New(messages.PipelineNoGitHub)
	}
	manifests, err := p.readManifests()
	if err != nil {
		return s, err
	}
	m := p.releaseManager()
	results, err := m.Release(ctx, s.Selection.ReleaseCrate, s.Tags, manifests)
	if err != nil {
		return s, err
	}
	for _, r := range results {
		p.logger().Info("release ready",
			zap.String("tag", r.Tag),
			zap.Bool("created", r.Created),
			zap.Int("uploaded", r.Upload.Uploaded),
			zap.Int("attempted", r.Upload.Attempted),
		)
	}
	s.Releases = results
	return s, nil
}

func (p *Pipeline) releaseManager() *releaser.Manager {
	cfg := p.Config
	return &releaser.Manager{
		API: p.GitHub,
		Options: releaser.Options{
			PerCrate: cfg.Release.Separately,
			Names:    cfg.Release.Name,
			Notes:    cfg.Release.Notes,
			Latest:   cfg.Release.Latest,
			Pre:      cfg.Release.Pre,
			Output:   cfg.Package.Output,
			Target:   cfg.Setup.Target,
		},
		Log: p.Log,
	}
}
