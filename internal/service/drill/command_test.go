package drill

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/service/common"
)

// writeConfig writes a simulate mode configuration plus extra YAML lines.
func writeConfig(t *testing.T, extra ...string) *Options {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "edge-alert.yaml")
	envFile := filepath.Join(dir, "empty.env")

	lines := append([]string{"simulate: true", "alert_duration: 15ms", "log_level: debug"}, extra...)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600))
	require.NoError(t, os.WriteFile(envFile, nil, 0o600))

	return &Options{Config: common.ConfigOptions{ConfigPath: path, EnvFile: envFile}}
}

func observedContext(t *testing.T) (context.Context, *observer.ObservedLogs) {
	t.Helper()

	previous := logger.Level()
	t.Cleanup(func() { logger.SetLevel(previous) })

	core, logs := observer.New(zapcore.DebugLevel)

	return logger.ToContext(context.Background(), zap.New(core).Sugar()), logs
}

// TestPulse uses the configured duration when none is given.
func TestPulse(t *testing.T) {
	ctx, logs := observedContext(t)

	require.NoError(t, Pulse(ctx, writeConfig(t), 0))

	alerts := logs.FilterMessage("[SIM] DANGER ALERT").All()
	require.Len(t, alerts, 1)
	require.Equal(t, 15*time.Millisecond, alerts[0].ContextMap()["duration"])
	require.Equal(t, 1, logs.FilterMessage("Indicator released").Len())
}

// TestSpeak rejects blank text and logs the phrase in simulate mode.
func TestSpeak(t *testing.T) {
	ctx, logs := observedContext(t)
	opts := writeConfig(t)

	require.ErrorIs(t, Speak(ctx, opts, "   "), ErrEmptyText)
	require.NoError(t, Speak(ctx, opts, "Check the fire exit"))
	require.Equal(t, 1, logs.FilterMessage("[SIM] TTS: Check the fire exit").Len())
}

// TestPlay covers a missing file, simulated playback and disabled speech.
func TestPlay(t *testing.T) {
	ctx, _ := observedContext(t)

	audio := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF0000WAVE"), 0o600))

	require.Error(t, Play(ctx, writeConfig(t), audio+".missing"))
	require.NoError(t, Play(ctx, writeConfig(t), audio))
	require.ErrorIs(t, Play(ctx, writeConfig(t, "tts_enabled: false"), audio), ErrPlaybackFailed)
}

// TestCycle runs a fixed number of pulses, then an endless cycle until canceled.
func TestCycle(t *testing.T) {
	ctx, logs := observedContext(t)

	require.NoError(t, Cycle(ctx, writeConfig(t), CycleOptions{
		Count:    3,
		Duration: 10 * time.Millisecond,
		Gap:      5 * time.Millisecond,
	}))
	require.Equal(t, 3, logs.FilterMessage("[SIM] DANGER ALERT").Len())
	require.Equal(t, 2, logs.FilterMessage("Cycle step: idle").Len())

	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	started := time.Now()
	require.NoError(t, Cycle(ctx, writeConfig(t), CycleOptions{Duration: 20 * time.Millisecond, Gap: 20 * time.Millisecond}))
	require.Less(t, time.Since(started), 2*time.Second)
	require.Greater(t, logs.FilterMessage("[SIM] DANGER ALERT").Len(), 4)
}
