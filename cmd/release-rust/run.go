package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/pipeline"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var skipSetup bool
	cmd := &cobra.Command{
		Use:   messages.RunUse,
		Short: messages.RunShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log, err := opts.newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			p, err := newPipeline(cmd.Context(), cfg, pipeline.Options{
				Log:       log.Logger,
				Stream:    cmd.ErrOrStderr(),
				SkipSetup: skipSetup,
				Getenv:    os.Getenv,
			})
			if err != nil {
				return err
			}
			s, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			printRunSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSetup, "skip-setup", false, messages.FlagSkipSetup)
	return cmd
}

func printRunSummary(out io.Writer, s pipeline.State) {
	if s.Done {
		_, _ = fmt.Fprint(out, color.GreenString(messages.RunStoppedFmt, len(s.Published)))
		return
	}
	_, _ = fmt.Fprint(out, color.GreenString(messages.RunDoneFmt, s.RunID, len(s.Published), len(s.Tags), len(s.Releases)))
	for _, r := range s.Releases {
		_, _ = fmt.Fprintf(out, messages.RunReleaseFmt, r.Tag, r.Upload.Uploaded, r.Upload.Attempted+r.Upload.Missing)
	}
}
