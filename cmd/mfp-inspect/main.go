package main

import (
	"fmt"
	"log"

	mfp "github.com/glimte/mmate-mfp"
	"github.com/glimte/mmate-mfp/config"
	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// globalFlags are shared by every command
type globalFlags struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mfp-inspect",
		Short: "Create, inspect and move flattened messages",
		Long: `mfp-inspect writes sample flattened messages, decodes flattened messages
into a readable header and body listing, browses the configured message store,
publishes flattened messages to RabbitMQ and checks system health.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newSampleCmd(flags),
		newInspectCmd(flags),
		newStoreCmd(flags),
		newBrokerCmd(flags),
		newHealthCmd(flags),
	)
	return rootCmd
}

// newRuntime loads the config and builds a runtime logging to the command's
// error stream
func newRuntime(cmd *cobra.Command, flags *globalFlags, opts ...mfp.RuntimeOption) (*mfp.Runtime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	switch {
	case flags.verbose:
		cfg.Logging.Level = "debug"
	case cfg.Logging.Level == "info":
		// Keep command output readable unless asked otherwise.
		cfg.Logging.Level = "warn"
	}

	logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return mfp.NewRuntime(append([]mfp.RuntimeOption{mfp.WithConfig(cfg), mfp.WithLogger(logger)}, opts...)...)
}
