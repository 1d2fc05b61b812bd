// Package pipeline sequences the release phases for one run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/manifest"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/packager"
	"github.com/conn-castle/release-rust/internal/releaser"
	"github.com/conn-castle/release-rust/internal/selector"
	"github.com/conn-castle/release-rust/internal/setup"
	"github.com/conn-castle/release-rust/internal/signer"
	"github.com/conn-castle/release-rust/internal/tagger"
)

// Variables passed to every hook.
const (
	EnvRoot   = "RELEASE_ROOT"
	EnvOutput = "RELEASE_PACKAGE_OUTPUT"
	EnvTarget = "RELEASE_TARGET"
	EnvRunID  = "RELEASE_RUN_ID"
)

var newRunID = uuid.NewString

// Cargo is the cargo surface the pipeline needs.
type Cargo interface {
	Metadata(ctx context.Context) (*cargo.Metadata, error)
	Publish(ctx context.Context, name string, token string) error
}

// Repository is the git surface used by setup and tagging.
type Repository interface {
	tagger.Repository
	setup.GitConfig
}

// State is the run state handed from phase to phase. Phases return an
// updated copy and never modify the one they receive.
type State struct {
	RunID     string
	Local     []cargo.Package
	Selection selector.Selection
	// Published holds the crates published by this run, in order.
	Published   []cargo.Package
	BuildOutput string
	Packaging   packager.Result
	Signed      signer.Report
	Tags        []tagger.Tag
	Releases    []releaser.Result
	// Done stops the run after the current phase and its hook.
	Done bool
}

// Phase is one step of the run.
type Phase func(ctx context.Context, s State) (State, error)

type step struct {
	name string
	run  Phase
	hook hooks.Name
	// hookDir and hookVars default to the workspace root and no extras.
	hookDir  func(State) string
	hookVars func(State) map[string]string
}

// Pipeline runs the phases for one configuration.
type Pipeline struct {
	Config   *config.Config
	Runner   command.Runner
	Cargo    Cargo
	Registry selector.Lookup
	Repo     Repository
	// GitHub is required only when releasing.
	GitHub releaser.API
	// Hooks carries the scripts and shell; the run adds the base variables.
	Hooks *hooks.Runner
	// SkipSetup leaves the toolchain and git configuration alone.
	SkipSetup bool
	// Windows archives zip packages with 7z.
	Windows bool
	TempDir string
	Getenv  func(string) string
	Log     *zap.Logger
}

// Run executes every phase in order. A failing phase stops the run before
// its hook; the returned state is the last one a phase completed.
func (p *Pipeline) Run(ctx context.Context) (State, error) {
	log := p.logger()
	s := State{RunID: newRunID()}
	log.Info("starting release run", zap.String("run_id", s.RunID), zap.String("target", p.Config.Setup.Target))

	for _, st := range p.steps() {
		log.Info("phase started", zap.String("phase", st.name))
		next, err := st.run(ctx, s)
		if err != nil {
			return s, fmt.Errorf(messages.PipelinePhaseFmt, st.name, err)
		}
		s = next
		dir := p.Config.Root
		if st.hookDir != nil {
			dir = st.hookDir(s)
		}
		var vars map[string]string
		if st.hookVars != nil {
			vars = st.hookVars(s)
		}
		if err := p.hooks(s).Run(ctx, st.hook, vars, dir); err != nil {
			return s, fmt.Errorf(messages.PipelinePhaseFmt, st.name, err)
		}
		if s.Done {
			log.Info("run stopped after phase", zap.String("phase", st.name))
			break
		}
	}
	return s, nil
}

func (p *Pipeline) steps() []step {
	output := func(State) string { return p.Config.Package.Output }
	packageVars := func(s State) map[string]string {
		return s.Packaging.HookVars(p.Config.Package.Separately)
	}
	return []step{
		{name: "setup", run: p.Setup, hook: hooks.PostSetup},
		{name: "publish", run: p.Publish, hook: hooks.PostPublish},
		{name: "build", run: p.Build, hook: hooks.PostBuild},
		{name: "package", run: p.Package, hook: hooks.PostPackage, hookDir: output, hookVars: packageVars},
		{name: "sign", run: p.Sign, hook: hooks.PostSign, hookDir: output, hookVars: packageVars},
		{name: "tag", run: p.Tag, hook: hooks.PostTag},
		{name: "release", run: p.Release, hook: hooks.PostRelease},
	}
}

// BaseVars returns the variables every hook and extra flag expansion sees.
func (p *Pipeline) BaseVars(runID string) map[string]string {
	return map[string]string{
		EnvRoot:   p.Config.Root,
		EnvOutput: p.Config.Package.Output,
		EnvTarget: p.Config.Setup.Target,
		EnvRunID:  runID,
	}
}

// hooks returns a copy of the hook runner carrying the run's variables.
func (p *Pipeline) hooks(s State) *hooks.Runner {
	r := hooks.Runner{Commands: p.Runner, Log: p.Log, TempDir: p.TempDir}
	if p.Hooks != nil {
		r = *p.Hooks
	}
	if r.Commands == nil {
		r.Commands = p.Runner
	}
	r.Env = command.MergeVars(r.Env, p.BaseVars(s.RunID))
	return &r
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// readManifests loads the manifests the package phase left in the output directory.
func (p *Pipeline) readManifests() ([]manifest.Crate, error) {
	return manifest.Read(p.Config.Package.Output)
}
