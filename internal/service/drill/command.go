package drill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oshokin/edge-alert/internal/alert"
	"github.com/oshokin/edge-alert/internal/config"
	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/service/common"
)

const (
	// DefaultCycleDuration is the pulse length of one cycle step.
	DefaultCycleDuration = time.Second
	// DefaultCycleGap is the idle time between cycle steps.
	DefaultCycleGap = time.Second
)

var (
	// ErrEmptyText is returned by Speak for blank text.
	ErrEmptyText = errors.New("text is empty")
	// ErrPlaybackFailed is returned by Play when the audio did not play.
	ErrPlaybackFailed = errors.New("playback failed")
)

// Options are shared by every drill.
type Options struct {
	// Config selects and overrides the configuration.
	Config common.ConfigOptions
	// ControllerOptions are passed to the alert controller.
	ControllerOptions []alert.Option
}

// withController loads the configuration, builds the controller, runs fn and releases the hardware.
func withController(ctx context.Context, opts *Options, fn func(*alert.Controller, *config.Config) error) error {
	cfg, err := common.LoadConfig(ctx, opts.Config)
	if err != nil {
		return err
	}

	controller := common.NewController(ctx, cfg, opts.ControllerOptions...)
	defer controller.Cleanup(context.WithoutCancel(ctx))

	return fn(controller, cfg)
}

// Pulse fires one danger pulse. A zero duration uses the configured alert duration.
func Pulse(ctx context.Context, opts *Options, duration time.Duration) error {
	ctx = logger.WithName(ctx, "drill-pulse")

	return withController(ctx, opts, func(c *alert.Controller, cfg *config.Config) error {
		if duration <= 0 {
			duration = cfg.AlertDuration
		}

		logger.InfoKV(ctx, "Danger pulse", "duration", duration)
		c.TriggerDanger(ctx, duration)

		return nil
	})
}

// Speak says text through the configured speech strategy.
func Speak(ctx context.Context, opts *Options, text string) error {
	ctx = logger.WithName(ctx, "drill-speak")

	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	return withController(ctx, opts, func(c *alert.Controller, _ *config.Config) error {
		c.Speak(ctx, text)
		return nil
	})
}

// Play plays a WAV file the way server audio is played.
func Play(ctx context.Context, opts *Options, path string) error {
	ctx = logger.WithName(ctx, "drill-play")

	audio, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	return withController(ctx, opts, func(c *alert.Controller, _ *config.Config) error {
		if !c.PlayWAV(ctx, audio) {
			return fmt.Errorf("%s: %w", path, ErrPlaybackFailed)
		}

		return nil
	})
}

// CycleOptions shape a pulse cycle.
type CycleOptions struct {
	// Count is the number of pulses, zero for until canceled.
	Count int
	// Duration is the length of each pulse.
	Duration time.Duration
	// Gap is the idle time between pulses.
	Gap time.Duration
}

// Cycle alternates danger pulses and idle gaps so the LED groups, the buzzer
// and the siren can be checked by eye and ear. It stops after Count pulses or
// when ctx is canceled.
func Cycle(ctx context.Context, opts *Options, cycle CycleOptions) error {
	ctx = logger.WithName(ctx, "drill-cycle")

	if cycle.Duration <= 0 {
		cycle.Duration = DefaultCycleDuration
	}

	if cycle.Gap < 0 {
		cycle.Gap = DefaultCycleGap
	}

	return withController(ctx, opts, func(c *alert.Controller, _ *config.Config) error {
		for i := 1; cycle.Count <= 0 || i <= cycle.Count; i++ {
			logger.InfoKV(ctx, "Cycle step: danger", "step", i)
			c.TriggerDanger(ctx, cycle.Duration)

			if ctx.Err() != nil || i == cycle.Count {
				break
			}

			logger.InfoKV(ctx, "Cycle step: idle", "step", i, "state", c.State())

			timer := time.NewTimer(cycle.Gap)

			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				logger.Info(ctx, "Cycle interrupted")

				return nil
			}
		}

		return nil
	})
}
