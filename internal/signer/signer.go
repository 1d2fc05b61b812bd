// Package signer signs packaged outputs with cosign keyless signing.
package signer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/conn-castle/release-rust/internal/command"
	"github.com/conn-castle/release-rust/internal/extras"
	"github.com/conn-castle/release-rust/internal/messages"
)

// Signer runs cosign sign-blob over every file in the output directory.
type Signer struct {
	Runner  command.Runner
	Enabled bool
	Output  string
	// CosignFlags are extra cosign arguments; $OUTPUT expands to the file being signed.
	CosignFlags []string
	Vars        map[string]string
	Log         *zap.Logger
	Getenv      func(string) string
}

// Report lists the signed and failed outputs.
type Report struct {
	Signed []string
	Failed []string
}

// Sign signs each output in turn. A failure on one output is logged and the
// remaining outputs are still signed; only listing the outputs can fail.
func (s *Signer) Sign(ctx context.Context) (Report, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	if !s.Enabled {
		log.Info("skipping signing")
		return Report{}, nil
	}
	outputs, err := Outputs(s.Output)
	if err != nil {
		return Report{}, err
	}
	log.Info("signing outputs", zap.Int("count", len(outputs)), zap.Strings("outputs", outputs))

	var report Report
	for _, out := range outputs {
		if err := s.sign(ctx, out); err != nil {
			log.Error("failed to sign output, skipping", zap.String("output", out), zap.Error(err))
			report.Failed = append(report.Failed, out)
			continue
		}
		report.Signed = append(report.Signed, out)
	}
	return report, nil
}

func (s *Signer) sign(ctx context.Context, output string) error {
	vars := command.MergeVars(s.Vars, map[string]string{"OUTPUT": output})
	flags, err := extras.Expand(s.CosignFlags, vars, s.Getenv)
	if err != nil {
		return err
	}
	args := append([]string{"sign-blob", "--yes"}, flags...)
	args = append(args, output)
	_, err = s.Runner.Run(ctx, command.Cmd{
		Name: "cosign",
		Args: args,
		Env:  []string{"COSIGN_EXPERIMENTAL=1"},
	})
	if err != nil {
		return fmt.Errorf(messages.SignFailedFmt, filepath.Base(output), err)
	}
	return nil
}

// Outputs returns the regular, non-hidden files directly inside dir, sorted.
func Outputs(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if strings.HasPrefix(m, ".") {
			continue
		}
		path := filepath.Join(dir, m)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}
