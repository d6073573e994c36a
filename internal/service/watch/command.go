package watch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oshokin/edge-alert/internal/alert"
	"github.com/oshokin/edge-alert/internal/dispatch"
	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/service/common"
)

// maxEventSize bounds one JSON line. Server WAV audio travels inline as base64.
const maxEventSize = 64 << 20

// Options controls the watch loop.
type Options struct {
	// Config selects and overrides the configuration.
	Config common.ConfigOptions
	// Input is the event stream, os.Stdin when nil.
	Input io.Reader
	// ControllerOptions are passed to the alert controller.
	ControllerOptions []alert.Option
}

// Run dispatches events until the input ends or ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "watch")

	// Load settings and apply command line overrides.
	cfg, err := common.LoadConfig(ctx, opts.Config)
	if err != nil {
		return err
	}

	controller := common.NewController(ctx, cfg, opts.ControllerOptions...)

	// Release the hardware even when ctx is already canceled.
	defer func() {
		controller.Cleanup(context.WithoutCancel(ctx))
		logger.Info(ctx, "Alert loop stopped cleanly")
	}()

	dispatcher := dispatch.New(controller, dispatch.OptionsFromConfig(cfg))

	input := opts.Input
	if input == nil {
		input = os.Stdin
	}

	events, readErr := readEvents(ctx, input)

	logger.InfoKV(ctx, "Alert loop started",
		"alert_duration", cfg.AlertDuration,
		"cooldown", cfg.DangerCooldown,
		"server_wav_only", cfg.ServerWAVOnly,
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Shutdown requested")
			return nil
		case ev, ok := <-events:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read events: %w", err)
				}

				logger.Info(ctx, "Event stream ended")

				return nil
			}

			outcome := dispatcher.Handle(ctx, ev)
			logger.DebugKV(ctx, "Event handled", "outcome", outcome)
		}
	}
}

// readEvents decodes JSON lines from r on its own goroutine. Malformed lines
// are logged and skipped. The events channel is closed at the end of input,
// then the read error, if any, is sent on the error channel.
func readEvents(ctx context.Context, r io.Reader) (<-chan dispatch.Event, <-chan error) {
	events := make(chan dispatch.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxEventSize)

		line := 0

		for scanner.Scan() {
			line++

			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			var ev dispatch.Event
			if err := json.Unmarshal([]byte(text), &ev); err != nil {
				logger.WarnKV(ctx, "Malformed event skipped", "line", line, "error", err)
				continue
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
			errs <- err
		}
	}()

	return events, errs
}
