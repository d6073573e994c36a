package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/edge-alert/internal/service/watch"
)

// watchCmd runs the alert loop over hazard events read from stdin.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Dispatch hazard events read from stdin as JSON lines.",
	Long: `Reads hazard events from stdin, one JSON object per line, and alerts on each danger.

Each event has is_danger, summary and confidence, and an optional ack object
with the server acknowledgement. Server WAV audio in the acknowledgement is
played first; otherwise the server text or the local summary is spoken.
Repeated dangers inside the cooldown window are skipped.

SIGINT and SIGTERM end the current pulse early and release the hardware.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signalContext()
		defer stop()

		return watch.Run(ctx, &watch.Options{Config: configOptions})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(watchCmd)
}
