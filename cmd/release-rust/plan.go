package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conn-castle/release-rust/internal/cargo"
	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/pipeline"
	"github.com/conn-castle/release-rust/internal/selector"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   messages.PlanUse,
		Short: messages.PlanShort,
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

			p, err := newPipeline(cmd.Context(), cfg, pipeline.Options{Log: log.Logger, Getenv: os.Getenv})
			if err != nil {
				return err
			}
			plan, err := p.Plan(cmd.Context())
			out := cmd.OutOrStdout()
			if errors.Is(err, selector.ErrNothingToPublish) {
				printPlan(out, cfg, plan)
				_, _ = fmt.Fprintf(out, messages.PlanNothingToPublishFmt, err)
				return nil
			}
			if err != nil {
				return err
			}
			printPlan(out, cfg, plan)
			return nil
		},
	}
}

func printPlan(out io.Writer, cfg *config.Config, plan pipeline.Plan) {
	header := color.New(color.Bold)
	_, _ = fmt.Fprintf(out, messages.PlanTargetFmt, cfg.Setup.Target)

	printCrates(out, header, messages.PlanHeaderPublish, plan.Selection.Publish)
	printCrates(out, header, messages.PlanHeaderPublished, plan.Selection.AlreadyPublished)
	if cfg.Publish.CrateOnly {
		_, _ = fmt.Fprintln(out, color.YellowString(messages.PlanCrateOnly))
		return
	}
	printCrates(out, header, messages.PlanHeaderPackage, plan.Selection.Release)
	if rc := plan.Selection.ReleaseCrate; rc.Name != "" {
		_, _ = fmt.Fprintf(out, messages.PlanReleaseCrateFmt, color.CyanString(rc.Name))
	}
	printNames(out, header, messages.PlanHeaderTags, plan.Tags)
	printNames(out, header, messages.PlanHeaderReleases, plan.Releases)
}

func printCrates(out io.Writer, header *color.Color, title string, crates []cargo.Package) {
	_, _ = header.Fprintln(out, title)
	if len(crates) == 0 {
		_, _ = fmt.Fprintln(out, messages.PlanNone)
		return
	}
	for _, c := range crates {
		_, _ = fmt.Fprintf(out, messages.PlanItemFmt, c.Name, c.Version)
	}
}

func printNames(out io.Writer, header *color.Color, title string, names []string) {
	_, _ = header.Fprintln(out, title)
	if len(names) == 0 {
		_, _ = fmt.Fprintln(out, messages.PlanNone)
		return
	}
	for _, n := range names {
		_, _ = fmt.Fprintf(out, messages.PlanItemFmt, "-", n)
	}
}
