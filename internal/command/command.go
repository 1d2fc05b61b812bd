// Package command runs external tools synchronously and captures their output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/messages"
)

var execCommandContext = exec.CommandContext

// Cmd describes one subprocess invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory; empty uses the runner's.
	Dir string
	// Env holds KEY=VALUE entries layered over the runner's base environment.
	Env []string
	// Stdout, when set, receives stdout instead of the captured result.
	Stdout io.Writer
}

// String renders the command line for logs.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds captured output.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// ExitError reports a subprocess that ran and exited non-zero.
// The message omits output; callers log Stdout and Stderr when useful.
type ExitError struct {
	Name   string
	Args   []string
	Code   int
	Stdout string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf(messages.CommandFailedFmt, e.Name, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code carried by err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the default working directory.
	Dir string
	// Env is the base environment; nil uses os.Environ.
	Env []string
	// Stream, when set, also receives stdout and stderr as they are produced.
	Stream io.Writer
	Log    *zap.Logger
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Cmd) (Result, error) {
	if cmd.Name == "" {
		return Result{}, errors.New(messages.CommandNameMissing)
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	// #nosec G204 -- commands are assembled from validated configuration.
	c := execCommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = r.Dir
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	base := r.Env
	if base == nil {
		base = os.Environ()
	}
	env := append([]string{}, base...)
	for _, entry := range cmd.Env {
		key, value, _ := strings.Cut(entry, "=")
		env = SetEnv(env, key, value)
	}
	c.Env = env

	var stdout, stderr bytes.Buffer
	c.Stdout = r.tee(&stdout)
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	c.Stderr = r.tee(&stderr)

	log.Info("running command", zap.String("command", cmd.String()), zap.String("dir", c.Dir))
	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Debug("command output",
			zap.String("command", cmd.Name),
			zap.String("stdout", res.Stdout),
			zap.String("stderr", res.Stderr),
		)
		return res, &ExitError{
			Name:   cmd.Name,
			Args:   cmd.Args,
			Code:   exitErr.ExitCode(),
			Stdout: res.Stdout,
			Stderr: res.Stderr,
			Err:    err,
		}
	}
	return res, fmt.Errorf(messages.CommandStartFmt, cmd.Name, err)
}

func (r *ExecRunner) tee(buf *bytes.Buffer) io.Writer {
	if r.Stream == nil {
		return buf
	}
	return io.MultiWriter(buf, r.Stream)
}
