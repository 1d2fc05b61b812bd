// Package hooks runs user-supplied scripts at fixed points of a release run.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/messages"
)

// Name identifies a hook point.
type Name string

// Hook points in pipeline order.
const (
	PostSetup   Name = "post-setup"
	PostPublish Name = "post-publish"
	CustomBuild Name = "custom-build"
	PostBuild   Name = "post-build"
	PrePackage  Name = "pre-package"
	PostPackage Name = "post-package"
	PostSign    Name = "post-sign"
	PostTag     Name = "post-tag"
	PostRelease Name = "post-release"
)

// Names lists every hook point in pipeline order.
var Names = []Name{
	PostSetup, PostPublish, CustomBuild, PostBuild, PrePackage, PostPackage, PostSign, PostTag, PostRelease,
}

// Known reports whether name is a hook point.
func Known(name string) bool {
	for _, n := range Names {
		if string(n) == name {
			return true
		}
	}
	return false
}

// DefaultShell runs hooks when none is configured.
const DefaultShell = "bash"

// Runner writes hook scripts to temporary files and executes them.
type Runner struct {
	Scripts map[Name]string
	// Shell is the interpreter command line, split on spaces.
	Shell    string
	Commands command.Runner
	// Env holds variables passed to every hook.
	Env map[string]string
	// TempDir is where script directories are created; empty uses os.TempDir.
	TempDir string
	Log     *zap.Logger
}

// Has reports whether a non-empty script is configured for name.
func (r *Runner) Has(name Name) bool {
	if r == nil {
		return false
	}
	return strings.TrimSpace(r.Scripts[name]) != ""
}

// Run executes the script for name in workdir with the runner's variables
// plus extra. A missing script is a no-op.
func (r *Runner) Run(ctx context.Context, name Name, extra map[string]string, workdir string) error {
	if !Known(string(name)) {
		return fmt.Errorf(messages.HookUnknownFmt, name)
	}
	if !r.Has(name) {
		return nil
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	shell := r.Shell
	if strings.TrimSpace(shell) == "" {
		shell = DefaultShell
	}
	argv := strings.Fields(shell)
	if len(argv) == 0 {
		return errors.New(messages.HookShellEmpty)
	}

	dir, err := os.MkdirTemp(r.TempDir, string(name)+"-")
	if err != nil {
		return fmt.Errorf(messages.HookCreateTempDirFmt, name, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	script := filepath.Join(dir, string(name)+"."+scriptExtension(argv[0]))
	if err := os.WriteFile(script, []byte(r.Scripts[name]), 0o700); err != nil {
		return fmt.Errorf(messages.HookWriteScriptFmt, script, err)
	}

	args := append([]string{}, argv[1:]...)
	args = append(args, scriptArgs(argv[0], script)...)
	env := command.EnvList(command.MergeVars(r.Env, extra))

	log.Info("running hook", zap.String("hook", string(name)), zap.String("shell", shell))
	if _, err := r.Commands.Run(ctx, command.Cmd{Name: argv[0], Args: args, Dir: workdir, Env: env}); err != nil {
		return fmt.Errorf(messages.HookFailedFmt, name, err)
	}
	return nil
}

func shellKind(shell string) string {
	base := strings.ToLower(filepath.Base(shell))
	return strings.TrimSuffix(base, ".exe")
}

func scriptExtension(shell string) string {
	switch shellKind(shell) {
	case "cmd":
		return "bat"
	case "pwsh", "powershell":
		return "ps1"
	default:
		return "sh"
	}
}

func scriptArgs(shell, script string) []string {
	switch shellKind(shell) {
	case "cmd":
		return []string{"/c", script}
	case "pwsh", "powershell":
		return []string{"-file", script}
	default:
		return []string{script}
	}
}
