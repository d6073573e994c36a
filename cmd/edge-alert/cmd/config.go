package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/edge-alert/internal/service/configdump"
)

var (
	// dumpOptions shape the config dump subcommand.
	dumpOptions configdump.Options

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration.",
		Args:  cobra.NoArgs,
	}

	configDumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Write the effective configuration as YAML.",
		Long: `Merges the configuration file, the dotenv file, the environment and the
command line flags the same way watch does, then writes the result as YAML.
The output can be passed back with --config.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			dumpOptions.Config = configOptions

			return configdump.Run(ctx, &dumpOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configDumpCmd.Flags().StringVarP(&dumpOptions.Output, "output", "o", "", "YAML file to write")
	configDumpCmd.Flags().BoolVarP(&dumpOptions.Force, "force", "f", false, "overwrite an existing output file")

	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}
