package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/edge-alert/internal/config"
	"github.com/oshokin/edge-alert/internal/service/common"
	"github.com/oshokin/edge-alert/internal/version"
)

var (
	// configOptions collects the persistent configuration flags.
	configOptions common.ConfigOptions

	// rootCmd is the base command; every action is a subcommand.
	rootCmd = &cobra.Command{
		Use:   "edge-alert",
		Short: "Drive the hazard indicator and speak alerts on an edge device.",
		Long: `Drives the physical hazard indicator of an edge safety appliance and speaks alerts.

On a danger event the danger LEDs light, the siren command or the buzzer sounds
for the alert duration, then the indicator returns to the safe state. Speech
goes through an explicit TTS command, Piper, or a console synthesizer, and
server-rendered WAV audio is played when the server sends it.

Missing GPIO drivers, siren commands or audio tools never stop the program:
each degrades to the next option and, finally, to log output.

Configuration is read from a YAML file, a .env file and EDGE_* variables,
in that order; flags override all three.`,
		SilenceUsage: true,
	}
)

// Execute runs the edge-alert CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	// Setup persistent flags with consistent naming and descriptions.
	flags.StringVarP(&configOptions.ConfigPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+", skipped when missing)")
	flags.StringVarP(&configOptions.EnvFile, "env-file", "e", "",
		"path to dotenv file (default "+config.DefaultEnvFilename+", skipped when missing)")
	flags.StringVarP(&configOptions.LogLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&configOptions.Simulate, "simulate", false, "log alerts instead of driving hardware and audio")
}
