package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/edge-alert/internal/service/drill"
)

var (
	// pulseDuration is the pulse length, zero for the configured alert duration.
	pulseDuration time.Duration
	// cycleOptions shape the cycle subcommand.
	cycleOptions drill.CycleOptions

	pulseCmd = &cobra.Command{
		Use:   "pulse",
		Short: "Fire one danger pulse.",
		Long:  "Lights the danger LEDs and sounds the siren or buzzer for one pulse, then returns to idle.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return drill.Pulse(ctx, drillOptions(), pulseDuration)
		},
	}

	speakCmd = &cobra.Command{
		Use:   "speak <text>...",
		Short: "Speak a phrase.",
		Long:  "Speaks the arguments, joined by spaces, with the configured speech strategy.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return drill.Speak(ctx, drillOptions(), strings.Join(args, " "))
		},
	}

	playCmd = &cobra.Command{
		Use:   "play <file.wav>",
		Short: "Play a WAV file like server audio.",
		Long:  "Plays a WAV file through the first available player and fails when it does not play.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return drill.Play(ctx, drillOptions(), args[0])
		},
	}

	cycleCmd = &cobra.Command{
		Use:   "cycle",
		Short: "Alternate danger pulses and idle gaps to check the wiring.",
		Long: `Alternates danger pulses and idle gaps so each LED group, the buzzer and
the siren can be checked by eye and ear. Runs until interrupted unless --count is set.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return drill.Cycle(ctx, drillOptions(), cycleOptions)
		},
	}
)

func drillOptions() *drill.Options {
	return &drill.Options{Config: configOptions}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pulseCmd.Flags().DurationVarP(&pulseDuration, "duration", "d", 0, "pulse length (default: configured alert duration)")

	cycleCmd.Flags().IntVarP(&cycleOptions.Count, "count", "n", 0, "number of pulses, 0 to run until interrupted")
	cycleCmd.Flags().DurationVarP(&cycleOptions.Duration, "duration", "d", drill.DefaultCycleDuration, "length of each pulse")
	cycleCmd.Flags().DurationVarP(&cycleOptions.Gap, "gap", "g", drill.DefaultCycleGap, "idle time between pulses")

	rootCmd.AddCommand(pulseCmd, speakCmd, playCmd, cycleCmd)
}
