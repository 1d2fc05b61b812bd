package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conn-castle/release-rust/internal/manifest"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/patterns"
	"github.com/conn-castle/release-rust/internal/pipeline"
)

func newManifestCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   messages.ManifestUse,
		Short: messages.ManifestShort,
	}
	cmd.PersistentFlags().StringVar(&output, "output", "", messages.FlagOutput)

	add := &cobra.Command{
		Use:   messages.ManifestAddUse,
		Short: messages.ManifestAddShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.outputDir(output)
			if err != nil {
				return err
			}
			filter, err := patterns.New([]string{args[0]})
			if err != nil {
				return err
			}
			updated, err := manifest.AddPackageFile(cmd.Context(), dir, filter, args[1])
			if err != nil {
				return fmt.Errorf(messages.PipelineManifestAddFmt, args[1], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.ManifestAddedFmt, args[1], strings.Join(updated, ", "))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   messages.ManifestShowUse,
		Short: messages.ManifestShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.outputDir(output)
			if err != nil {
				return err
			}
			crates, err := manifest.Read(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if crates == nil {
				_, _ = fmt.Fprintf(out, messages.ManifestEmptyFmt, dir)
				return nil
			}
			data, err := json.MarshalIndent(crates, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, string(data))
			return nil
		},
	}

	cmd.AddCommand(add, show)
	return cmd
}

// outputDir picks the manifest directory: the flag, then the variable hooks
// receive, then the configured package output.
func (o *rootOptions) outputDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(pipeline.EnvOutput); env != "" {
		return env, nil
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Package.Output, nil
}
