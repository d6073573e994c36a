package alert

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/edge-alert/internal/config"
	domain "github.com/oshokin/edge-alert/internal/domain/alert"
	"github.com/oshokin/edge-alert/internal/indicator"
	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/speech"
)

// Option customizes a Controller.
type Option func(*settings)

type settings struct {
	indicatorOptions []indicator.Option
	speechOptions    []speech.Option
}

// WithIndicatorOptions passes options to the indicator output.
func WithIndicatorOptions(options ...indicator.Option) Option {
	return func(s *settings) {
		s.indicatorOptions = append(s.indicatorOptions, options...)
	}
}

// WithSpeechOptions passes options to the speech output.
func WithSpeechOptions(options ...speech.Option) Option {
	return func(s *settings) {
		s.speechOptions = append(s.speechOptions, options...)
	}
}

// Controller drives danger pulses and speech.
type Controller struct {
	simulate  bool
	indicator *indicator.Output
	speech    *speech.Output

	// mu serializes pulses and Cleanup.
	mu     sync.Mutex
	closed bool
}

// New builds the indicator and speech outputs from a copy of cfg.
func New(ctx context.Context, cfg *config.Config, options ...Option) *Controller {
	var s settings
	for _, option := range options {
		option(&s)
	}

	if cfg == nil {
		cfg = config.Default()
	}

	cfg = cfg.Clone()
	_ = config.Validate(ctx, cfg)

	mode, _ := domain.ParsePinMode(cfg.PinMode)

	return &Controller{
		simulate: cfg.Simulate,
		indicator: indicator.New(ctx, indicator.Options{
			DangerPins:   cfg.DangerLEDPins,
			SafePins:     cfg.SafeLEDPins,
			Mode:         mode,
			BuzzerPin:    cfg.BuzzerPin,
			SirenCommand: cfg.SirenArgv(),
			SirenOn:      cfg.SirenOn,
			SirenOff:     cfg.SirenOff,
			Grace:        cfg.ProcessGrace,
			Simulate:     cfg.Simulate,
		}, s.indicatorOptions...),
		speech: speech.New(ctx, speech.Options{
			Enabled:        cfg.TTSEnabled,
			Simulate:       cfg.Simulate,
			Command:        cfg.TTSArgv(),
			PiperModel:     cfg.TTSPiperModel,
			PiperSpeakerID: cfg.TTSPiperSpeakerID,
			Timeout:        cfg.TTSTimeout,
			Grace:          cfg.ProcessGrace,
		}, s.speechOptions...),
	}
}

// State returns the indicator state.
func (c *Controller) State() domain.IndicatorState {
	return c.indicator.State()
}

// IndicatorKind returns the indicator backend in use.
func (c *Controller) IndicatorKind() indicator.Kind {
	return c.indicator.Kind()
}

// SpeechMode returns the speech strategy in use.
func (c *Controller) SpeechMode() speech.Mode {
	return c.speech.Mode()
}

// TriggerDanger runs one danger pulse of the given duration and returns with
// the indicator idle and the buzzer off. The siren is tried first; when it is
// absent or fails, the buzzer beeps for the rest of the pulse. The pulse ends
// early when ctx is done. Failures are logged, never returned.
func (c *Controller) TriggerDanger(ctx context.Context, duration time.Duration) {
	ctx = logger.WithName(ctx, "alert")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		logger.Warn(ctx, "Danger pulse ignored, alert output already released")
		return
	}

	duration = max(duration, 0)

	if c.simulate || c.indicator.Kind() == indicator.KindSimulated {
		logger.WarnKV(ctx, "[SIM] DANGER ALERT", "duration", duration)
		sleepCtx(ctx, duration)
		logger.Info(ctx, "[SIM] Alert returned to idle")

		return
	}

	deadline := time.Now().Add(duration)

	defer c.recoverPulse(ctx)
	defer c.finishPulse(ctx)

	c.indicator.EnterDanger(ctx)

	if !c.indicator.DriveSiren(ctx, duration) {
		c.indicator.DutyCycleBuzzer(ctx, time.Until(deadline))
	}

	sleepCtx(ctx, time.Until(deadline))
}

// finishPulse silences the buzzer and restores the idle indicator.
func (c *Controller) finishPulse(ctx context.Context) {
	c.indicator.SetBuzzer(ctx, false)
	c.indicator.EnterIdle(ctx)
}

func (c *Controller) recoverPulse(ctx context.Context) {
	if r := recover(); r != nil {
		logger.ErrorKV(ctx, "Danger pulse failed", "panic", r)
	}
}

// Speak says text. Blank text is ignored.
func (c *Controller) Speak(ctx context.Context, text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Speech failed", "panic", r)
		}
	}()

	c.speech.Speak(ctx, text)
}

// PlayWAV plays server-rendered audio and reports whether it played.
func (c *Controller) PlayWAV(ctx context.Context, audio []byte) (played bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Audio playback failed", "panic", r)

			played = false
		}
	}()

	return c.speech.PlayWAV(ctx, audio)
}

// Cleanup releases the hardware after any in-flight pulse. Later calls do nothing.
func (c *Controller) Cleanup(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.indicator.Cleanup(ctx)
}

// sleepCtx sleeps for d, or less when ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
