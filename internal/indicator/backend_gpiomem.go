package indicator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/stianeikeland/go-rpio/v4"

	domain "github.com/oshokin/edge-alert/internal/domain/alert"
	"github.com/oshokin/edge-alert/internal/logger"
)

const (
	// bcmHeaderMaxPin is the highest BCM channel routed to the 40-pin header.
	bcmHeaderMaxPin = 27

	// gpioMemDevice is the unprivileged GPIO mapping exposed by the Raspberry Pi kernel.
	gpioMemDevice = "/dev/gpiomem"
)

// errNoGPIOMem is returned when the board has no gpiomem device.
var errNoGPIOMem = errors.New(gpioMemDevice + " not present")

// gpioMemBackend drives BCM channels through the memory-mapped GPIO block.
// go-rpio keeps the mapping in package state, so only one instance may be open.
type gpioMemBackend struct {
	order []int
	pins  map[int]rpio.Pin
}

func openGPIOMem(ctx context.Context, _ domain.PinMode, pins []int) (Backend, error) {
	// rpio.Open falls back to /dev/mem, which must never be mapped on a board it does not know.
	if _, err := os.Stat(gpioMemDevice); err != nil {
		return nil, errNoGPIOMem
	}

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w", err)
	}

	b := &gpioMemBackend{
		pins: make(map[int]rpio.Pin, len(pins)),
	}

	for _, pin := range pins {
		if pin < 0 || pin > bcmHeaderMaxPin {
			logger.WarnKV(ctx, "Pin outside the BCM header range, dropped", "backend", KindGPIOMem, "pin", pin)
			continue
		}

		p := rpio.Pin(uint8(pin))
		p.Output()
		p.Low()

		b.pins[pin] = p
		b.order = append(b.order, pin)
	}

	return b, nil
}

func (b *gpioMemBackend) Kind() Kind {
	return KindGPIOMem
}

func (b *gpioMemBackend) Pins() []int {
	return append([]int(nil), b.order...)
}

func (b *gpioMemBackend) Set(pin int, on bool) error {
	p, ok := b.pins[pin]
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, errPinNotAllocated)
	}

	if on {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

func (b *gpioMemBackend) Close() error {
	for _, p := range b.pins {
		p.Low()
		p.Input()
	}

	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpiomem: %w", err)
	}

	return nil
}
