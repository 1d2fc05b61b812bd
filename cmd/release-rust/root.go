package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/conn-castle/release-rust/internal/config"
	"github.com/conn-castle/release-rust/internal/logging"
	"github.com/conn-castle/release-rust/internal/messages"
	"github.com/conn-castle/release-rust/internal/pipeline"
	"github.com/conn-castle/release-rust/internal/terminal"
)

var newPipeline = pipeline.New

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	logFile    string
	dir        string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().Bool("version", false, messages.RootVersionFlag)

	opts.bind(cmd.PersistentFlags())
	cmd.AddCommand(
		newRunCmd(opts),
		newPlanCmd(opts),
		newManifestCmd(opts),
	)
	return cmd
}

func (o *rootOptions) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", messages.FlagConfig)
	flags.BoolVar(&o.debug, "debug", false, messages.FlagDebug)
	flags.StringVar(&o.logFile, "log-file", "", messages.FlagLogFile)
	flags.StringVar(&o.dir, "dir", "", messages.FlagDir)
}

// loadConfig reads the config file and the action inputs from the environment.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{
		Path: o.configPath,
		Root: o.dir,
		Env:  config.OSEnv(),
	})
}

// newLogger logs to the command's stderr. RUNNER_DEBUG=1 has the same
// effect as --debug.
func (o *rootOptions) newLogger(cmd *cobra.Command, cfg *config.Config) (*logging.Logger, error) {
	stderr := cmd.ErrOrStderr()
	return logging.New(logging.Config{
		Debug:    o.debug || (cfg != nil && cfg.Runner.Debug),
		Color:    terminal.SupportsColor(stderr),
		Console:  stderr,
		FilePath: o.logFile,
	})
}
