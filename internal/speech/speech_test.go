package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/process"
)

var errNotFound = errors.New("executable file not found in $PATH")

// lookPathFrom resolves only the listed binaries, to /usr/bin/<name>.
func lookPathFrom(names ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, name := range names {
			if name == file {
				return "/usr/bin/" + name, nil
			}
		}

		return "", errNotFound
	}
}

// call is one recorded process run.
type call struct {
	spec  process.Spec
	stdin string
	// fileExisted reports whether the last argument was an existing file at run time.
	fileExisted bool
}

// fakeRunner records runs and answers with queued results, exit 0 once the queue is empty.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	results []process.Result
}

func (r *fakeRunner) run(_ context.Context, spec process.Spec) process.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := call{spec: spec}

	if spec.Stdin != nil {
		data, _ := io.ReadAll(spec.Stdin)
		c.stdin = string(data)
	}

	if len(spec.Args) > 0 {
		_, err := os.Stat(spec.Args[len(spec.Args)-1])
		c.fileExisted = err == nil
	}

	r.calls = append(r.calls, c)

	if len(r.results) == 0 {
		return process.Result{}
	}

	res := r.results[0]
	r.results = r.results[1:]

	return res
}

func observedContext() (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.ToContext(context.Background(), zap.New(core).Sugar()), logs
}

// pcmWAV builds a mono 8-bit PCM WAV of the given length at 8 kHz.
func pcmWAV(t *testing.T, length time.Duration) []byte {
	t.Helper()

	const sampleRate = 8000

	samples := int(length.Seconds() * sampleRate)

	var buf bytes.Buffer

	write := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString("RIFF")
	write(uint32(36 + samples))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	write(uint32(16))
	write(uint16(1))          // PCM
	write(uint16(1))          // channels
	write(uint32(sampleRate)) // sample rate
	write(uint32(sampleRate)) // byte rate
	write(uint16(1))          // block align
	write(uint16(8))          // bits per sample
	buf.WriteString("data")
	write(uint32(samples))
	buf.Write(bytes.Repeat([]byte{128}, samples))

	return buf.Bytes()
}

// requireEmptyDir fails when dir contains any file.
func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestNew_ModeResolution walks the strategy chain.
func TestNew_ModeResolution(t *testing.T) {
	t.Parallel()

	model := filepath.Join(t.TempDir(), "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	tests := []struct {
		name     string
		opts     Options
		binaries []string
		want     Mode
		command  []string
	}{
		{
			name:     "disabled",
			opts:     Options{Enabled: false, Simulate: true},
			binaries: []string{"espeak-ng"},
			want:     ModeDisabled,
		},
		{
			name:     "simulated",
			opts:     Options{Enabled: true, Simulate: true},
			binaries: []string{"espeak-ng"},
			want:     ModeSimulated,
		},
		{
			name:     "explicit command",
			opts:     Options{Enabled: true, Command: []string{"festival", "--tts"}},
			binaries: []string{"festival", "espeak-ng"},
			want:     ModeCommand,
			command:  []string{"/usr/bin/festival", "--tts"},
		},
		{
			name:     "unresolvable command falls through",
			opts:     Options{Enabled: true, Command: []string{"festival"}},
			binaries: []string{"espeak"},
			want:     ModeConsole,
			command:  []string{"/usr/bin/espeak"},
		},
		{
			name:     "piper with model and player",
			opts:     Options{Enabled: true, PiperModel: model},
			binaries: []string{"piper", "aplay", "espeak-ng"},
			want:     ModeLocalNeural,
		},
		{
			name:     "piper without player",
			opts:     Options{Enabled: true, PiperModel: model},
			binaries: []string{"piper", "spd-say"},
			want:     ModeConsole,
			command:  []string{"/usr/bin/spd-say"},
		},
		{
			name:     "piper with missing model",
			opts:     Options{Enabled: true, PiperModel: model + ".missing"},
			binaries: []string{"piper", "ffplay", "say"},
			want:     ModeConsole,
			command:  []string{"/usr/bin/say"},
		},
		{
			name: "nothing installed",
			opts: Options{Enabled: true},
			want: ModeUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := New(context.Background(), tt.opts, WithLookPath(lookPathFrom(tt.binaries...)))
			require.Equal(t, tt.want, out.Mode())

			if tt.command != nil {
				require.Equal(t, tt.command, out.command)
			}
		})
	}
}

// TestNew_PlayerOrder prefers ffplay, then aplay, then paplay.
func TestNew_PlayerOrder(t *testing.T) {
	t.Parallel()

	out := New(context.Background(), Options{Enabled: true}, WithLookPath(lookPathFrom("paplay", "aplay")))
	require.Equal(t, []string{"/usr/bin/aplay", "-q"}, out.player)

	out = New(context.Background(), Options{Enabled: true}, WithLookPath(lookPathFrom("paplay", "ffplay")))
	require.Equal(t, []string{"/usr/bin/ffplay", "-nodisp", "-autoexit"}, out.player)

	out = New(context.Background(), Options{Enabled: true}, WithLookPath(lookPathFrom()))
	require.False(t, out.HasPlayer())
}

// TestSpeak_Command checks placeholder substitution, appending and blank text.
func TestSpeak_Command(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	out := New(context.Background(), Options{
		Enabled: true,
		Command: []string{"festival", "--text={text}", "{text}"},
		Timeout: 3 * time.Second,
	}, WithLookPath(lookPathFrom("festival")), WithRunner(runner.run))

	out.Speak(context.Background(), "  ")
	require.Empty(t, runner.calls)

	out.Speak(context.Background(), " Evacuate now ")
	require.Len(t, runner.calls, 1)
	require.Equal(t, "/usr/bin/festival", runner.calls[0].spec.Path)
	require.Equal(t, []string{"--text=Evacuate now", "Evacuate now"}, runner.calls[0].spec.Args)
	require.Equal(t, 3*time.Second, runner.calls[0].spec.Timeout)

	runner = &fakeRunner{results: []process.Result{{ExitCode: -1, TimedOut: true}}}
	out = New(context.Background(), Options{Enabled: true, Timeout: time.Second},
		WithLookPath(lookPathFrom("espeak-ng")), WithRunner(runner.run))

	out.Speak(context.Background(), "Fire detected")
	require.Len(t, runner.calls, 1)
	require.Equal(t, []string{"Fire detected"}, runner.calls[0].spec.Args)
}

// TestSpeak_SimulatedAndDisabled never spawns a process.
func TestSpeak_SimulatedAndDisabled(t *testing.T) {
	t.Parallel()

	ctx, logs := observedContext()
	runner := &fakeRunner{}

	out := New(ctx, Options{Enabled: true, Simulate: true},
		WithLookPath(lookPathFrom("espeak-ng", "ffplay")), WithRunner(runner.run))
	out.Speak(ctx, "Smoke in aisle 4")

	require.Equal(t, 1, logs.FilterMessage("[SIM] TTS: Smoke in aisle 4").Len())

	out = New(ctx, Options{Enabled: false},
		WithLookPath(lookPathFrom("espeak-ng", "ffplay")), WithRunner(runner.run))
	out.Speak(ctx, "Smoke in aisle 4")

	require.Empty(t, runner.calls)
}

// TestSpeak_Piper synthesizes from stdin, plays the file and removes it.
func TestSpeak_Piper(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	model := filepath.Join(t.TempDir(), "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	speaker := 2
	runner := &fakeRunner{}

	out := New(context.Background(), Options{
		Enabled:        true,
		PiperModel:     model,
		PiperSpeakerID: &speaker,
		Timeout:        4 * time.Second,
	}, WithLookPath(lookPathFrom("piper", "ffplay")), WithRunner(runner.run), WithTempDir(tempDir))
	require.Equal(t, ModeLocalNeural, out.Mode())

	out.Speak(context.Background(), "Leave the building")

	require.Len(t, runner.calls, 2)

	synth := runner.calls[0]
	require.Equal(t, "/usr/bin/piper", synth.spec.Path)
	require.Equal(t, "Leave the building", synth.stdin)
	require.Equal(t, 4*time.Second, synth.spec.Timeout)
	require.Equal(t, "--model", synth.spec.Args[0])
	require.Equal(t, model, synth.spec.Args[1])
	require.Equal(t, "--output_file", synth.spec.Args[2])
	require.Equal(t, []string{"--speaker", "2"}, synth.spec.Args[4:])

	audioPath := synth.spec.Args[3]
	require.Equal(t, tempDir, filepath.Dir(audioPath))

	play := runner.calls[1]
	require.Equal(t, "/usr/bin/ffplay", play.spec.Path)
	require.Equal(t, []string{"-nodisp", "-autoexit", audioPath}, play.spec.Args)
	require.Equal(t, 9*time.Second, play.spec.Timeout)
	require.True(t, play.fileExisted)

	requireEmptyDir(t, tempDir)
}

// TestSpeak_PiperFailureSkipsPlayback does not play when synthesis fails.
func TestSpeak_PiperFailureSkipsPlayback(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	model := filepath.Join(t.TempDir(), "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	runner := &fakeRunner{results: []process.Result{{ExitCode: 1}}}

	out := New(context.Background(), Options{Enabled: true, PiperModel: model, Timeout: time.Second},
		WithLookPath(lookPathFrom("piper", "paplay")), WithRunner(runner.run), WithTempDir(tempDir))
	out.Speak(context.Background(), "Leave the building")

	require.Len(t, runner.calls, 1)
	requireEmptyDir(t, tempDir)
}

// TestPlayWAV_Guards covers the cases that return without spawning anything.
func TestPlayWAV_Guards(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	runner := &fakeRunner{}
	audio := pcmWAV(t, 100*time.Millisecond)

	noPlayer := New(context.Background(), Options{Enabled: true},
		WithLookPath(lookPathFrom("espeak-ng")), WithRunner(runner.run), WithTempDir(tempDir))
	require.False(t, noPlayer.PlayWAV(context.Background(), audio))

	withPlayer := New(context.Background(), Options{Enabled: true},
		WithLookPath(lookPathFrom("ffplay")), WithRunner(runner.run), WithTempDir(tempDir))
	require.False(t, withPlayer.PlayWAV(context.Background(), nil))
	require.False(t, withPlayer.PlayWAV(context.Background(), []byte{}))

	disabled := New(context.Background(), Options{Enabled: false},
		WithLookPath(lookPathFrom("ffplay")), WithRunner(runner.run), WithTempDir(tempDir))
	require.False(t, disabled.PlayWAV(context.Background(), audio))

	simulated := New(context.Background(), Options{Enabled: true, Simulate: true},
		WithLookPath(lookPathFrom()), WithRunner(runner.run), WithTempDir(tempDir))
	require.True(t, simulated.PlayWAV(context.Background(), audio))

	require.Empty(t, runner.calls)
	requireEmptyDir(t, tempDir)
}

// TestPlayWAV_Playback checks the timeout formula, the exit code and temp file removal.
func TestPlayWAV_Playback(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	runner := &fakeRunner{results: []process.Result{{}, {}, {ExitCode: 1}, {}}}

	out := New(context.Background(), Options{Enabled: true, Timeout: 3 * time.Second},
		WithLookPath(lookPathFrom("aplay")), WithRunner(runner.run), WithTempDir(tempDir))

	require.True(t, out.PlayWAV(context.Background(), pcmWAV(t, time.Second)))
	require.True(t, out.PlayWAV(context.Background(), pcmWAV(t, 30*time.Second)))
	require.False(t, out.PlayWAV(context.Background(), pcmWAV(t, time.Second)))
	require.True(t, out.PlayWAV(context.Background(), []byte("not a wav file")))

	require.Len(t, runner.calls, 4)

	require.Equal(t, 20*time.Second, runner.calls[0].spec.Timeout)
	require.Equal(t, 40*time.Second, runner.calls[1].spec.Timeout)
	require.Equal(t, 20*time.Second, runner.calls[3].spec.Timeout)

	for _, c := range runner.calls {
		require.Equal(t, "/usr/bin/aplay", c.spec.Path)
		require.Equal(t, "-q", c.spec.Args[0])
		require.True(t, c.fileExisted)
	}

	requireEmptyDir(t, tempDir)

	long := New(context.Background(), Options{Enabled: true, Timeout: 15 * time.Second},
		WithLookPath(lookPathFrom("aplay")), WithRunner(runner.run), WithTempDir(tempDir))
	require.True(t, long.PlayWAV(context.Background(), pcmWAV(t, time.Second)))
	require.Equal(t, 27*time.Second, runner.calls[4].spec.Timeout)
}

// streamedWAV returns a clip whose RIFF and data sizes are 0xFFFFFFFF, as
// written by encoders that stream without seeking back.
func streamedWAV(t *testing.T) []byte {
	t.Helper()

	audio := pcmWAV(t, 100*time.Millisecond)
	binary.LittleEndian.PutUint32(audio[4:8], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(audio[40:44], 0xFFFFFFFF)

	return audio
}

// TestPlayWAV_MalformedHeaders plays clips whose header cannot be parsed.
func TestPlayWAV_MalformedHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		audio func(t *testing.T) []byte
	}{
		{
			name:  "streamed sizes",
			audio: streamedWAV,
		},
		{
			name: "truncated header",
			audio: func(t *testing.T) []byte {
				t.Helper()
				return pcmWAV(t, time.Second)[:30]
			},
		},
		{
			name: "truncated data",
			audio: func(t *testing.T) []byte {
				t.Helper()
				return pcmWAV(t, time.Second)[:100]
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tempDir := t.TempDir()
			runner := &fakeRunner{}

			out := New(context.Background(), Options{Enabled: true, Timeout: 3 * time.Second},
				WithLookPath(lookPathFrom("ffplay")), WithRunner(runner.run), WithTempDir(tempDir))

			var played bool

			require.NotPanics(t, func() {
				played = out.PlayWAV(context.Background(), tt.audio(t))
			})
			require.True(t, played)
			require.Len(t, runner.calls, 1)
			require.True(t, runner.calls[0].fileExisted)
			require.Equal(t, 20*time.Second, runner.calls[0].spec.Timeout)

			requireEmptyDir(t, tempDir)
		})
	}
}

// TestWAVPlaybackTimeout checks the base timeout and the cap on clip-based timeouts.
func TestWAVPlaybackTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tts   time.Duration
		audio []byte
		want  time.Duration
	}{
		{name: "short clip", tts: 3 * time.Second, audio: pcmWAV(t, time.Second), want: 20 * time.Second},
		{name: "long tts timeout", tts: 15 * time.Second, audio: pcmWAV(t, time.Second), want: 27 * time.Second},
		{name: "clip above base", tts: 3 * time.Second, audio: pcmWAV(t, 15*time.Second), want: 27 * time.Second},
		{name: "clip capped", tts: 3 * time.Second, audio: pcmWAV(t, 90*time.Second), want: 40 * time.Second},
		{name: "streamed sizes", tts: 3 * time.Second, audio: streamedWAV(t), want: 20 * time.Second},
		{name: "not a wav", tts: 3 * time.Second, audio: []byte("not a wav file"), want: 20 * time.Second},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, wavPlaybackTimeout(context.Background(), tt.tts, tt.audio))
		})
	}
}

// TestSubstituteText fills placeholders or appends.
func TestSubstituteText(t *testing.T) {
	t.Parallel()

	command := []string{"say", "-v", "Alex"}
	require.Equal(t, []string{"say", "-v", "Alex", "hi"}, substituteText(command, "hi"))
	require.Equal(t, []string{"say", "-v", "Alex"}, command)
	require.Equal(t, []string{"tts", "--in", "a {b}"}, substituteText([]string{"tts", "--in", "{text}"}, "a {b}"))
}
