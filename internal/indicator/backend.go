package indicator

import (
	"context"

	domain "github.com/oshokin/edge-alert/internal/domain/alert"
)

// Kind names a backend implementation.
type Kind string

const (
	// KindSimulated logs instead of touching hardware.
	KindSimulated Kind = "simulated"
	// KindGPIOMem drives BCM pins through /dev/gpiomem (go-rpio).
	KindGPIOMem Kind = "gpiomem"
	// KindPeriph drives pins through periph.io with BCM or BOARD names.
	KindPeriph Kind = "periph"
	// KindCommandOnly has no pins; only the siren command makes noise.
	KindCommandOnly Kind = "command-only"
)

// Backend owns the pin handles of one hardware driver.
type Backend interface {
	// Kind identifies the implementation.
	Kind() Kind
	// Pins lists the pins that were allocated successfully.
	Pins() []int
	// Set drives one allocated pin high (true) or low (false).
	Set(pin int, on bool) error
	// Close releases every handle. It is called exactly once.
	Close() error
}

// OpenFunc allocates pins on a backend. A per-pin failure drops that pin and
// is not an error; an error means the driver itself is unavailable.
type OpenFunc func(ctx context.Context, mode domain.PinMode, pins []int) (Backend, error)

// Factory is one candidate in the backend selection chain.
type Factory struct {
	// Kind is reported in logs.
	Kind Kind
	// Modes are the pin numbering modes the backend understands.
	Modes []domain.PinMode
	// Open allocates the backend.
	Open OpenFunc
}

// DefaultFactories returns the hardware candidates in selection order.
func DefaultFactories() []Factory {
	return []Factory{
		{
			Kind:  KindGPIOMem,
			Modes: []domain.PinMode{domain.PinModeBCM},
			Open:  openGPIOMem,
		},
		{
			Kind:  KindPeriph,
			Modes: []domain.PinMode{domain.PinModeBCM, domain.PinModeBoard},
			Open:  openPeriph,
		},
	}
}

// commandOnlyBackend is used when no pin could be allocated but a siren exists.
type commandOnlyBackend struct{}

func (commandOnlyBackend) Kind() Kind          { return KindCommandOnly }
func (commandOnlyBackend) Pins() []int         { return nil }
func (commandOnlyBackend) Set(int, bool) error { return nil }
func (commandOnlyBackend) Close() error        { return nil }
