// Package builder compiles the selected crates for the release target.
package builder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/extras"
	"github.com/conn-castle/release-rust/internal/hooks"
	"github.com/conn-castle/release-rust/internal/messages"
)

// Hooks is the hook surface the builder needs.
type Hooks interface {
	Has(name hooks.Name) bool
	Run(ctx context.Context, name hooks.Name, extra map[string]string, workdir string) error
}

// Options configures a build.
type Options struct {
	Target string
	// Cross selects cross instead of cargo.
	Cross    bool
	Features []string
	BuildStd bool
	// DebugInfo keeps split debug info next to the binaries.
	DebugInfo  bool
	MuslLibGcc bool
	// CrtStatic forces the crt-static target feature on or off; nil uses the target default.
	CrtStatic *bool
	// CargoFlags and RustcFlags are raw extra flags, expanded against Vars.
	CargoFlags []string
	RustcFlags []string
	// Vars are the hook variables available to flag expansion.
	Vars map[string]string
	Dir  string
}

// Builder runs the build.
type Builder struct {
	Runner  command.Runner
	Hooks   Hooks
	Options Options
	Log     *zap.Logger
	// Getenv reads the inherited RUSTFLAGS; nil uses no inherited flags.
	Getenv func(string) string
}

// Build compiles crates and returns cargo's JSON message stream. A
// custom-build hook replaces the compiler invocation and yields no output.
func (b *Builder) Build(ctx context.Context, crates []cargo.Package) (string, error) {
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	if b.Hooks != nil && b.Hooks.Has(hooks.CustomBuild) {
		log.Info("running custom build hook")
		if err := b.Hooks.Run(ctx, hooks.CustomBuild, nil, b.Options.Dir); err != nil {
			return "", err
		}
		return "", nil
	}

	cmd, err := b.Command(crates)
	if err != nil {
		return "", err
	}
	log.Info("building crates",
		zap.Strings("crates", cargo.Names(crates)),
		zap.String("target", b.Options.Target),
		zap.Bool("cross", b.Options.Cross),
	)
	res, err := b.Runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf(messages.BuildFailedFmt, err)
	}
	return res.Stdout, nil
}

// Command assembles the build invocation.
func (b *Builder) Command(crates []cargo.Package) (command.Cmd, error) {
	o := b.Options
	tool := "cargo"
	if o.Cross {
		tool = "cross"
	}
	args := []string{"build", "--release", "--target", o.Target, "--message-format=json-render-diagnostics"}
	for _, c := range crates {
		args = append(args, "--package", c.Name)
	}
	if len(o.Features) > 0 {
		args = append(args, "--features", strings.Join(o.Features, ","))
	}
	if o.BuildStd {
		args = append(args, "-Z", "build-std=std")
	}
	if o.DebugInfo {
		args = append(args,
			"--config", `profile.release.split-debuginfo="packed"`,
			"--config", "profile.release.debug=2",
		)
	}
	extraCargo, err := extras.Expand(o.CargoFlags, o.Vars, nil)
	if err != nil {
		return command.Cmd{}, err
	}
	args = append(args, extraCargo...)

	rustflags, err := b.rustflags()
	if err != nil {
		return command.Cmd{}, err
	}
	cmd := command.Cmd{Name: tool, Args: args, Dir: o.Dir}
	if len(rustflags) > 0 {
		cmd.Env = []string{"RUSTFLAGS=" + strings.Join(rustflags, " ")}
	}
	return cmd, nil
}

func (b *Builder) rustflags() ([]string, error) {
	o := b.Options
	var flags []string
	if b.Getenv != nil {
		flags = append(flags, strings.Fields(b.Getenv("RUSTFLAGS"))...)
	}
	if o.MuslLibGcc && strings.Contains(o.Target, "-linux-musl") {
		flags = append(flags, "-C", "link-arg=-lgcc", "-C", "link-arg=-static-libgcc")
	}
	switch {
	case o.CrtStatic != nil && *o.CrtStatic:
		flags = append(flags, "-C", "target-feature=+crt-static")
	case o.CrtStatic != nil:
		flags = append(flags, "-C", "target-feature=-crt-static")
	case strings.HasSuffix(o.Target, "-alpine-linux-musl"):
		flags = append(flags, "-C", "target-feature=-crt-static")
	case strings.HasSuffix(o.Target, "-windows-msvc"):
		flags = append(flags, "-C", "target-feature=+crt-static")
	}
	extraRustc, err := extras.Expand(o.RustcFlags, o.Vars, nil)
	if err != nil {
		return nil, err
	}
	return append(flags, extraRustc...), nil
}
