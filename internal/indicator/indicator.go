package indicator

import (
	"context"
	"slices"
	"sync"
	"time"

	domain "github.com/oshokin/edge-alert/internal/domain/alert"
	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/process"
)

// Options describe the wiring of the alert hardware.
type Options struct {
	// DangerPins are lit during a danger pulse.
	DangerPins []int
	// SafePins are lit while idle. Pins also listed in DangerPins are removed.
	SafePins []int
	// Mode is the pin numbering of every pin above.
	Mode domain.PinMode
	// BuzzerPin is the buzzer output, nil when absent.
	BuzzerPin *int
	// SirenCommand is the external siren argv, empty when absent.
	SirenCommand []string
	// SirenOn and SirenOff shape the buzzer duty cycle.
	SirenOn  time.Duration
	SirenOff time.Duration
	// Grace is the SIGTERM-to-SIGKILL delay for the siren process.
	Grace time.Duration
	// Simulate skips hardware entirely.
	Simulate bool
}

// Option customizes an Output.
type Option func(*Output)

// WithFactories replaces the backend candidate list.
func WithFactories(factories ...Factory) Option {
	return func(o *Output) {
		o.factories = factories
	}
}

// Output owns the indicator hardware for the life of the process.
type Output struct {
	factories []Factory
	backend   Backend

	mode       domain.PinMode
	dangerPins []int
	safePins   []int
	buzzerPin  int
	hasBuzzer  bool

	siren    []string
	sirenOn  time.Duration
	sirenOff time.Duration
	grace    time.Duration

	// mu guards state, closed and every backend call.
	mu     sync.Mutex
	state  domain.IndicatorState
	closed bool
}

// New selects a backend, allocates the pins and enters the idle state.
func New(ctx context.Context, opts Options, options ...Option) *Output {
	ctx = logger.WithName(ctx, "indicator")

	o := &Output{
		factories: DefaultFactories(),
		mode:      opts.Mode,
		siren:     slices.Clone(opts.SirenCommand),
		sirenOn:   opts.SirenOn,
		sirenOff:  opts.SirenOff,
		grace:     opts.Grace,
	}

	if o.mode == "" {
		o.mode = domain.PinModeBCM
	}

	o.sirenOn = max(o.sirenOn, minDutyInterval)
	o.sirenOff = max(o.sirenOff, minDutyInterval)

	for _, option := range options {
		option(o)
	}

	plan, overlap := domain.NewPinPlan(opts.DangerPins, opts.SafePins, opts.BuzzerPin)
	for _, pin := range overlap {
		logger.WarnKV(ctx, "Pin listed as danger and safe LED, removed from safe group", "pin", pin)
	}

	if opts.Simulate {
		o.backend = newSimulatedBackend(ctx, plan.All())
	} else {
		o.backend = o.selectBackend(ctx, plan)
	}

	allocated := o.backend.Pins()
	o.dangerPins = intersect(plan.Danger, allocated)
	o.safePins = intersect(plan.Safe, allocated)

	if plan.Buzzer != nil && slices.Contains(allocated, *plan.Buzzer) {
		o.buzzerPin = *plan.Buzzer
		o.hasBuzzer = true
	}

	logger.InfoKV(ctx, "Indicator ready",
		"backend", o.backend.Kind(),
		"pin_mode", o.mode,
		"danger_pins", o.dangerPins,
		"safe_pins", o.safePins,
		"buzzer", o.hasBuzzer,
		"siren", len(o.siren) > 0,
	)

	o.EnterIdle(ctx)

	return o
}

// selectBackend walks the factory chain and returns the first backend with at least one pin.
func (o *Output) selectBackend(ctx context.Context, plan domain.PinPlan) Backend {
	pins := plan.All()

	for _, factory := range o.factories {
		if !slices.Contains(factory.Modes, o.mode) {
			continue
		}

		backend, err := factory.Open(ctx, o.mode, pins)
		if err != nil {
			logger.WarnKV(ctx, "Indicator backend unavailable", "backend", factory.Kind, "error", err)
			continue
		}

		if len(backend.Pins()) == 0 {
			logger.WarnKV(ctx, "Indicator backend has no usable pins", "backend", factory.Kind)

			if err = backend.Close(); err != nil {
				logger.WarnKV(ctx, "Indicator backend close failed", "backend", factory.Kind, "error", err)
			}

			continue
		}

		return backend
	}

	if len(o.siren) > 0 {
		logger.Warn(ctx, "No GPIO backend usable, continuing with the siren command only")
		return commandOnlyBackend{}
	}

	logger.Warn(ctx, "No GPIO backend usable and no siren command, falling back to simulation")

	return newSimulatedBackend(ctx, pins)
}

// Kind returns the selected backend kind.
func (o *Output) Kind() Kind {
	return o.backend.Kind()
}

// State returns the current indicator state.
func (o *Output) State() domain.IndicatorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// ActiveDangerPins returns the danger pins that were allocated.
func (o *Output) ActiveDangerPins() []int {
	return slices.Clone(o.dangerPins)
}

// ActiveSafePins returns the safe pins that were allocated.
func (o *Output) ActiveSafePins() []int {
	return slices.Clone(o.safePins)
}

// HasBuzzer reports whether a buzzer pin was allocated.
func (o *Output) HasBuzzer() bool {
	return o.hasBuzzer
}

// HasSiren reports whether a siren command is configured.
func (o *Output) HasSiren() bool {
	return len(o.siren) > 0
}

// EnterIdle turns the danger group off and the safe group on.
func (o *Output) EnterIdle(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.setGroup(ctx, o.dangerPins, false)
	o.setGroup(ctx, o.safePins, true)
	o.state = domain.StateIdle
}

// EnterDanger turns the safe group off and the danger group on.
func (o *Output) EnterDanger(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.setGroup(ctx, o.safePins, false)
	o.setGroup(ctx, o.dangerPins, true)
	o.state = domain.StateDanger
}

// SetBuzzer drives the buzzer pin. No-op without a buzzer or after Cleanup.
func (o *Output) SetBuzzer(ctx context.Context, on bool) {
	if !o.hasBuzzer {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.setPin(ctx, o.buzzerPin, on)
}

// Cleanup turns everything off and releases the backend. Later calls do nothing.
func (o *Output) Cleanup(ctx context.Context) {
	ctx = logger.WithName(ctx, "indicator")

	o.mu.Lock()

	if o.closed {
		o.mu.Unlock()
		return
	}

	o.setGroup(ctx, o.dangerPins, false)
	o.setGroup(ctx, o.safePins, false)

	if o.hasBuzzer {
		o.setPin(ctx, o.buzzerPin, false)
	}

	if err := o.backend.Close(); err != nil {
		logger.WarnKV(ctx, "Indicator backend close failed", "backend", o.backend.Kind(), "error", err)
	}

	o.closed = true
	o.state = domain.StateIdle
	o.mu.Unlock()

	if len(o.siren) > 0 {
		if _, err := process.SweepChildren(ctx, o.siren[0]); err != nil {
			logger.DebugKV(ctx, "Leftover siren sweep failed", "error", err)
		}
	}

	logger.InfoKV(ctx, "Indicator released", "backend", o.backend.Kind())
}

// setGroup writes one level to several pins. o.mu must be held.
func (o *Output) setGroup(ctx context.Context, pins []int, on bool) {
	for _, pin := range pins {
		o.setPin(ctx, pin, on)
	}
}

// setPin writes one pin and logs a failure without propagating it. o.mu must be held.
func (o *Output) setPin(ctx context.Context, pin int, on bool) {
	if err := o.backend.Set(pin, on); err != nil {
		logger.WarnKV(ctx, "Pin write failed", "backend", o.backend.Kind(), "pin", pin, "on", on, "error", err)
	}
}

// intersect keeps the elements of want present in have, in the order of want.
func intersect(want, have []int) []int {
	result := make([]int, 0, len(want))

	for _, pin := range want {
		if slices.Contains(have, pin) {
			result = append(result, pin)
		}
	}

	return result
}
