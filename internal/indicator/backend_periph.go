package indicator

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	domain "github.com/oshokin/edge-alert/internal/domain/alert"
	"github.com/oshokin/edge-alert/internal/logger"
)

// boardGroundPins are the ground pins of the 40-pin header in BOARD numbering.
//
//nolint:gochecknoglobals // Fixed hardware table.
var boardGroundPins = []int{6, 9, 14, 20, 25, 30, 34, 39}

var errPinNotAllocated = errors.New("pin not allocated")

// periphBackend resolves pins through the periph.io registry. The numbering
// mode is fixed per instance: BCM maps to GPIO<n>, BOARD to header name P1_<n>.
type periphBackend struct {
	mode  domain.PinMode
	order []int
	pins  map[int]gpio.PinIO
}

func openPeriph(ctx context.Context, mode domain.PinMode, pins []int) (Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	b := &periphBackend{
		mode: mode,
		pins: make(map[int]gpio.PinIO, len(pins)),
	}

	for _, pin := range pins {
		if mode == domain.PinModeBoard && slices.Contains(boardGroundPins, pin) {
			logger.WarnKV(ctx, "BOARD pin is a ground pin, skipped", "backend", KindPeriph, "pin", pin)
			continue
		}

		name := periphPinName(mode, pin)

		p := gpioreg.ByName(name)
		if p == nil {
			logger.WarnKV(ctx, "Pin not found in periph registry, dropped", "backend", KindPeriph, "pin", pin, "name", name)
			continue
		}

		if err := p.Out(gpio.Low); err != nil {
			logger.WarnKV(ctx, "Pin cannot be set as output, dropped", "backend", KindPeriph, "pin", pin, "error", err)
			continue
		}

		b.pins[pin] = p
		b.order = append(b.order, pin)
	}

	return b, nil
}

// periphPinName maps a configured pin number to its periph registry name.
func periphPinName(mode domain.PinMode, pin int) string {
	if mode == domain.PinModeBoard {
		return fmt.Sprintf("P1_%d", pin)
	}

	return fmt.Sprintf("GPIO%d", pin)
}

func (b *periphBackend) Kind() Kind {
	return KindPeriph
}

func (b *periphBackend) Pins() []int {
	return slices.Clone(b.order)
}

func (b *periphBackend) Set(pin int, on bool) error {
	p, ok := b.pins[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, errPinNotAllocated)
	}

	level := gpio.Low
	if on {
		level = gpio.High
	}

	if err := p.Out(level); err != nil {
		return fmt.Errorf("write %s: %w", p.Name(), err)
	}

	return nil
}

func (b *periphBackend) Close() error {
	var errs []error

	for _, pin := range b.order {
		p := b.pins[pin]

		if err := p.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", p.Name(), err))
		}

		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt %s: %w", p.Name(), err))
		}
	}

	return errors.Join(errs...)
}
