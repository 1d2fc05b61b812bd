// Package setup prepares the Rust toolchain and git for a release run.
package setup

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/command"
)

var lookPath = exec.LookPath

// Git identity used for tags created on CI runners.
const (
	GitUserName  = "GitHub Actions (release-rust)"
	GitUserEmail = "41898282+github-actions[bot]@users.noreply.github.com"
)

// GitConfig writes global git settings.
type GitConfig interface {
	SetGlobalConfig(ctx context.Context, key, value string) error
}

// Options configures setup.
type Options struct {
	Toolchain string
	Target    string
	// Components are extra rustup components; rust-src is added when BuildStd is set.
	Components   []string
	BuildStd     bool
	Cross        bool
	CrossVersion string
	SignTags     bool
	SignPackages bool
	// CI enables the git identity setup; local runs keep the user's identity.
	CI bool
}

// Setup runs the setup phase.
type Setup struct {
	Runner  command.Runner
	Git     GitConfig
	Options Options
	Log     *zap.Logger
}

// Run installs the toolchain, cross when needed, and configures git.
func (s *Setup) Run(ctx context.Context) error {
	if err := s.rustup(ctx); err != nil {
		return err
	}
	if s.Options.Cross {
		if err := s.installCross(ctx); err != nil {
			return err
		}
	}
	s.checkTools()
	if s.Options.SignTags {
		s.logger().Info("configuring git to sign tags with gitsign")
		if err := s.gitConfig(ctx, [][2]string{
			{"tag.gpgsign", "true"},
			{"gpg.x509.program", "gitsign"},
			{"gpg.format", "x509"},
		}); err != nil {
			return err
		}
	}
	if s.Options.CI {
		s.logger().Info("configuring git user")
		if err := s.gitConfig(ctx, [][2]string{
			{"user.name", GitUserName},
			{"user.email", GitUserEmail},
		}); err != nil {
			return err
		}
	}
	return nil
}

// components returns the rustup components to install, without duplicates.
func (o Options) components() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range o.Components {
		add(c)
	}
	if o.BuildStd {
		add("rust-src")
	}
	return out
}

func (s *Setup) rustup(ctx context.Context) error {
	o := s.Options
	s.logger().Info("installing rust toolchain", zap.String("toolchain", o.Toolchain), zap.String("target", o.Target))
	install := []string{"toolchain", "install", o.Toolchain, "--profile", "minimal"}
	if comps := o.components(); len(comps) > 0 {
		install = append(install, "--component", strings.Join(comps, ","))
	}
	steps := [][]string{
		install,
		{"target", "add", o.Target, "--toolchain", o.Toolchain},
		{"default", o.Toolchain},
	}
	for _, args := range steps {
		if _, err := s.Runner.Run(ctx, command.Cmd{Name: "rustup", Args: args}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Setup) installCross(ctx context.Context) error {
	if path, err := lookPath("cross"); err == nil && s.Options.CrossVersion == "" {
		s.logger().Info("using installed cross", zap.String("path", path))
		return nil
	}
	version := s.Options.CrossVersion
	var args []string
	if _, err := lookPath("cargo-binstall"); err == nil {
		pkg := "cross"
		if version != "" {
			pkg += "@" + version
		}
		args = []string{"binstall", "-y", "--force", pkg}
	} else {
		args = []string{"install", "cross", "--locked"}
		if version != "" {
			args = append(args, "--version", version)
		}
	}
	s.logger().Info("installing cross", zap.String("version", version))
	_, err := s.Runner.Run(ctx, command.Cmd{Name: "cargo", Args: args})
	return err
}

// checkTools warns about missing signing tools; signing itself decides what
// to do when they are absent.
func (s *Setup) checkTools() {
	tools := map[string]bool{
		"cosign":  s.Options.SignPackages,
		"gitsign": s.Options.SignTags,
	}
	for _, tool := range []string{"cosign", "gitsign"} {
		if !tools[tool] {
			continue
		}
		if _, err := lookPath(tool); err != nil {
			s.logger().Warn("signing tool not found on PATH", zap.String("tool", tool))
		}
	}
}

func (s *Setup) gitConfig(ctx context.Context, pairs [][2]string) error {
	for _, kv := range pairs {
		if err := s.Git.SetGlobalConfig(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Setup) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
