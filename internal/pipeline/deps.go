package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/git"
	"github.com/conn-castle/release-rust/internal/github"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/registry"
)

// Options are the process settings of a run.
type Options struct {
	Log *zap.Logger
	// Stream echoes subprocess output as it is produced.
	Stream    io.Writer
	SkipSetup bool
	TempDir   string
	Getenv    func(string) string
}

// New wires a pipeline to the real tools and services. The GitHub client is
// only created when releasing is enabled and a repository is known.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	runner := &command.ExecRunner{Dir: cfg.Root, Stream: opts.Stream, Log: opts.Log}
	p := &Pipeline{
		Config:   cfg,
		Runner:   runner,
		Cargo:    &cargo.Cargo{Runner: runner, Dir: cfg.Root, Log: opts.Log},
		Registry: registry.New(cfg.Registry.URL, opts.Log),
		Repo:     &git.Git{Runner: runner, Dir: cfg.Root},
		Hooks: &hooks.Runner{
			Scripts:  cfg.Hooks.Scripts,
			Shell:    cfg.Hooks.Shell,
			Commands: runner,
			TempDir:  opts.TempDir,
			Log:      opts.Log,
		},
		SkipSetup: opts.SkipSetup,
		Windows:   isWindows(cfg.Runner.OS, runtime.GOOS),
		TempDir:   opts.TempDir,
		Getenv:    opts.Getenv,
		Log:       opts.Log,
	}
	if cfg.Release.Enabled && cfg.GitHub.Repository != "" {
		client, err := github.New(ctx, github.Options{
			Token:      cfg.GitHub.Token,
			Repository: cfg.GitHub.Repository,
			APIURL:     cfg.GitHub.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf(messages.PipelineGitHubFmt, err)
		}
		p.GitHub = client
	}
	return p, nil
}

func isWindows(runnerOS, goos string) bool {
	if runnerOS != "" {
		return strings.EqualFold(runnerOS, "windows")
	}
	return goos == "windows"
}
