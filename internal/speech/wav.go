package speech

import (
	"bytes"
	"context"
	"time"

	"github.com/youpy/go-wav"

	"github.com/oshokin/edge-alert/internal/logger"
)

// clipInfo is what the playback path needs to know about a WAV clip.
type clipInfo struct {
	Channels   uint16
	SampleRate uint32
	Bits       uint16
	Duration   time.Duration
}

// probeWAV reads the WAV header. A failed probe is logged and playback still
// proceeds; the player is the final judge of the bytes.
// go-riff panics when a chunk size runs past the buffer, which happens for
// truncated files and for streamed WAVs that declare 0xFFFFFFFF sizes.
func probeWAV(ctx context.Context, audio []byte) (info clipInfo, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.DebugKV(ctx, "Server WAV header unreadable", "bytes", len(audio), "error", r)

			info, ok = clipInfo{}, false
		}
	}()

	reader := wav.NewReader(bytes.NewReader(audio))

	format, err := reader.Format()
	if err != nil {
		logger.DebugKV(ctx, "Server WAV header unreadable", "bytes", len(audio), "error", err)
		return clipInfo{}, false
	}

	duration, err := reader.Duration()
	if err != nil {
		logger.DebugKV(ctx, "Server WAV duration unknown", "bytes", len(audio), "error", err)
		return clipInfo{}, false
	}

	info = clipInfo{
		Channels:   format.NumChannels,
		SampleRate: format.SampleRate,
		Bits:       format.BitsPerSample,
		Duration:   duration,
	}

	logger.DebugKV(ctx, "Server WAV received",
		"bytes", len(audio),
		"channels", info.Channels,
		"sample_rate", info.SampleRate,
		"bits", info.Bits,
		"duration", info.Duration,
	)

	return info, true
}
