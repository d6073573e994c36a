package indicator

import (
	"context"
	"slices"
	"sync"

	"github.com/oshokin/edge-alert/internal/logger"
)

// simulatedBackend accepts every pin and only remembers and logs levels.
type simulatedBackend struct {
	//nolint:containedctx // Carries the component logger for pin level traces.
	ctx context.Context

	mu     sync.Mutex
	pins   []int
	levels map[int]bool
}

func newSimulatedBackend(ctx context.Context, pins []int) *simulatedBackend {
	return &simulatedBackend{
		ctx:    ctx,
		pins:   slices.Clone(pins),
		levels: make(map[int]bool, len(pins)),
	}
}

func (b *simulatedBackend) Kind() Kind {
	return KindSimulated
}

func (b *simulatedBackend) Pins() []int {
	return slices.Clone(b.pins)
}

func (b *simulatedBackend) Set(pin int, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.levels[pin] = on
	logger.DebugKV(b.ctx, "[SIM] pin level", "pin", pin, "on", on)

	return nil
}

func (b *simulatedBackend) Close() error {
	return nil
}

// level reports the last level written to pin.
func (b *simulatedBackend) level(pin int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.levels[pin]
}
