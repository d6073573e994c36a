package speech

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/process"
)

const (
	// piperPlaybackSlack is added to the TTS timeout for playing Piper output.
	piperPlaybackSlack = 5 * time.Second

	// wavPlaybackSlack is added to the TTS timeout and the clip length for server WAV playback.
	wavPlaybackSlack = 12 * time.Second

	// minWAVPlayback is the lower bound of the server WAV playback timeout.
	minWAVPlayback = 20 * time.Second

	// maxWAVPlaybackFactor caps the clip-based timeout at this multiple of the base timeout.
	maxWAVPlaybackFactor = 2
)

// Options configure speech output.
type Options struct {
	// Enabled turns speech on.
	Enabled bool
	// Simulate logs instead of speaking.
	Simulate bool
	// Command is an explicit TTS argv. Tokens containing {text} get the text substituted.
	Command []string
	// PiperModel is the Piper voice model path.
	PiperModel string
	// PiperSpeakerID selects a speaker of a multi-speaker model.
	PiperSpeakerID *int
	// Timeout bounds each synthesis run.
	Timeout time.Duration
	// Grace is the SIGTERM-to-SIGKILL delay for speech processes.
	Grace time.Duration
}

// LookPathFunc resolves an executable name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// RunFunc runs one process to completion, like process.Run.
type RunFunc func(ctx context.Context, spec process.Spec) process.Result

// Option customizes an Output.
type Option func(*Output)

// WithLookPath replaces executable resolution.
func WithLookPath(lookPath LookPathFunc) Option {
	return func(o *Output) {
		o.lookPath = lookPath
	}
}

// WithRunner replaces process execution.
func WithRunner(run RunFunc) Option {
	return func(o *Output) {
		o.run = run
	}
}

// WithTempDir sets where audio files are written. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(o *Output) {
		o.tempDir = dir
	}
}

// Output speaks text and plays WAV audio with the strategy chosen in New.
type Output struct {
	lookPath LookPathFunc
	run      RunFunc
	tempDir  string

	opts Options
	mode Mode

	// command is the resolved argv for ModeCommand and ModeConsole.
	command []string
	// piper is the resolved Piper executable for ModeLocalNeural.
	piper string
	// player is the resolved player argv without the file path, empty when none was found.
	player []string
}

var errNoPlayer = errors.New("no audio player found")

// New resolves the player and the speech strategy.
func New(ctx context.Context, opts Options, options ...Option) *Output {
	ctx = logger.WithName(ctx, "speech")

	o := &Output{
		lookPath: exec.LookPath,
		run:      process.Run,
		opts:     opts,
	}

	o.opts.Command = slices.Clone(opts.Command)
	if o.opts.Grace <= 0 {
		o.opts.Grace = process.DefaultGrace
	}

	for _, option := range options {
		option(o)
	}

	if player, err := o.resolvePlayer(); err == nil {
		o.player = player
	}

	o.mode = o.resolveMode(ctx)

	logger.InfoKV(ctx, "Speech ready", "mode", o.mode, "command", o.command, "player", o.player)

	return o
}

// Mode returns the selected strategy.
func (o *Output) Mode() Mode {
	return o.mode
}

// HasPlayer reports whether a WAV player was found.
func (o *Output) HasPlayer() bool {
	return len(o.player) > 0
}

// strategy is one step of the resolution chain. It returns true when it claims the mode.
type strategy struct {
	mode    Mode
	resolve func(o *Output, ctx context.Context) bool
}

var strategies = []strategy{
	{mode: ModeDisabled, resolve: func(o *Output, _ context.Context) bool { return !o.opts.Enabled }},
	{mode: ModeSimulated, resolve: func(o *Output, _ context.Context) bool { return o.opts.Simulate }},
	{mode: ModeCommand, resolve: (*Output).resolveCommand},
	{mode: ModeLocalNeural, resolve: (*Output).resolvePiper},
	{mode: ModeConsole, resolve: (*Output).resolveConsole},
}

func (o *Output) resolveMode(ctx context.Context) Mode {
	for _, s := range strategies {
		if s.resolve(o, ctx) {
			return s.mode
		}
	}

	logger.Warn(ctx, "No local TTS binary found, tried piper with a player, espeak-ng, espeak, spd-say and say")

	return ModeUnavailable
}

func (o *Output) resolveCommand(ctx context.Context) bool {
	if len(o.opts.Command) == 0 {
		return false
	}

	path, err := o.lookPath(o.opts.Command[0])
	if err != nil {
		logger.WarnKV(ctx, "Configured TTS command unavailable", "command", o.opts.Command, "error", err)
		return false
	}

	o.command = append([]string{path}, o.opts.Command[1:]...)

	return true
}

func (o *Output) resolvePiper(ctx context.Context) bool {
	path, err := o.lookPath(piperBinary)
	if err != nil {
		return false
	}

	if !o.HasPlayer() {
		logger.Warn(ctx, "No audio player installed, Piper output playback unavailable")
		return false
	}

	if o.opts.PiperModel == "" {
		logger.Warn(ctx, "Piper model path not set, set EDGE_TTS_PIPER_MODEL to use local neural TTS")
		return false
	}

	if _, err = os.Stat(o.opts.PiperModel); err != nil {
		logger.WarnKV(ctx, "Piper model not found", "model", o.opts.PiperModel, "error", err)
		return false
	}

	o.piper = path

	return true
}

func (o *Output) resolveConsole(_ context.Context) bool {
	for _, name := range consoleSynthesizers {
		if path, err := o.lookPath(name); err == nil {
			o.command = []string{path}
			return true
		}
	}

	return false
}

func (o *Output) resolvePlayer() ([]string, error) {
	for _, candidate := range players {
		if path, err := o.lookPath(candidate.name); err == nil {
			return append([]string{path}, candidate.args...), nil
		}
	}

	return nil, errNoPlayer
}

// Speak says text with the selected strategy. Blank text is ignored.
func (o *Output) Speak(ctx context.Context, text string) {
	ctx = logger.WithName(ctx, "speech")

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	switch o.mode {
	case ModeDisabled:
		return
	case ModeSimulated:
		logger.Warnf(ctx, "[SIM] TTS: %s", text)
	case ModeUnavailable:
		logger.Warn(ctx, "TTS skipped, no speech strategy available")
	case ModeLocalNeural:
		o.speakWithPiper(ctx, text)
	case ModeCommand, ModeConsole:
		o.speakWithCommand(ctx, text)
	}
}

func (o *Output) speakWithCommand(ctx context.Context, text string) {
	argv := substituteText(o.command, text)

	res := o.run(ctx, process.Spec{
		Name:    "tts",
		Path:    argv[0],
		Args:    argv[1:],
		Timeout: o.opts.Timeout,
		Grace:   o.opts.Grace,
	})
	o.logFailure(ctx, "TTS command", res)
}

func (o *Output) speakWithPiper(ctx context.Context, text string) {
	audioPath, err := o.tempFile("piper_tts_*.wav", nil)
	if err != nil {
		logger.WarnKV(ctx, "Piper output file cannot be created", "error", err)
		return
	}

	defer o.removeTemp(ctx, audioPath)

	args := []string{"--model", o.opts.PiperModel, "--output_file", audioPath}
	if o.opts.PiperSpeakerID != nil {
		args = append(args, "--speaker", strconv.Itoa(*o.opts.PiperSpeakerID))
	}

	res := o.run(ctx, process.Spec{
		Name:    "piper",
		Path:    o.piper,
		Args:    args,
		Stdin:   strings.NewReader(text),
		Timeout: o.opts.Timeout,
		Grace:   o.opts.Grace,
	})
	if !res.OK() {
		o.logFailure(ctx, "Piper synthesis", res)
		return
	}

	res = o.play(ctx, audioPath, o.opts.Timeout+piperPlaybackSlack)
	o.logFailure(ctx, "Piper output playback", res)
}

// PlayWAV plays server-rendered audio. It reports whether playback finished
// with exit code 0; simulated playback always succeeds.
func (o *Output) PlayWAV(ctx context.Context, audio []byte) bool {
	ctx = logger.WithName(ctx, "speech")

	if o.mode == ModeDisabled || len(audio) == 0 {
		return false
	}

	if o.mode == ModeSimulated {
		logger.WarnKV(ctx, "[SIM] TTS WAV received", "bytes", len(audio))
		return true
	}

	if !o.HasPlayer() {
		logger.Warn(ctx, "No audio player installed, cannot play server WAV audio")
		return false
	}

	timeout := wavPlaybackTimeout(ctx, o.opts.Timeout, audio)

	audioPath, err := o.tempFile("server_tts_*.wav", audio)
	if err != nil {
		logger.WarnKV(ctx, "Server WAV file cannot be written", "error", err)
		return false
	}

	defer o.removeTemp(ctx, audioPath)

	res := o.play(ctx, audioPath, timeout)
	o.logFailure(ctx, "Server WAV playback", res)

	return res.OK()
}

// wavPlaybackTimeout is max(20s, TTS timeout + 12s). A clip whose header
// declares a longer length gets clip + 12s, capped at twice that base so a
// bogus header cannot hold the player for long.
func wavPlaybackTimeout(ctx context.Context, ttsTimeout time.Duration, audio []byte) time.Duration {
	base := max(minWAVPlayback, ttsTimeout+wavPlaybackSlack)

	clip, ok := probeWAV(ctx, audio)
	if !ok {
		return base
	}

	return max(base, min(clip.Duration+wavPlaybackSlack, maxWAVPlaybackFactor*base))
}

func (o *Output) play(ctx context.Context, path string, timeout time.Duration) process.Result {
	return o.run(ctx, process.Spec{
		Name:    "player",
		Path:    o.player[0],
		Args:    append(slices.Clone(o.player[1:]), path),
		Timeout: timeout,
		Grace:   o.opts.Grace,
	})
}

// tempFile creates a file matching pattern and fills it with data.
func (o *Output) tempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(o.tempDir, pattern)
	if err != nil {
		return "", err
	}

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

func (o *Output) removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "Temporary audio file not removed", "path", path, "error", err)
	}
}

func (o *Output) logFailure(ctx context.Context, what string, res process.Result) {
	switch {
	case res.Err != nil:
		logger.WarnKV(ctx, what+" failed to start", "error", res.Err)
	case res.TimedOut:
		logger.WarnKV(ctx, what+" timed out", "after", res.Duration)
	case res.Canceled:
		logger.DebugKV(ctx, what+" canceled")
	case res.ExitCode != 0:
		logger.WarnKV(ctx, what+" returned non-zero code", "exit_code", res.ExitCode)
	}
}

// substituteText fills {text} placeholders, or appends text when there are none.
func substituteText(command []string, text string) []string {
	if !slices.ContainsFunc(command, func(token string) bool {
		return strings.Contains(token, textPlaceholder)
	}) {
		return append(slices.Clone(command), text)
	}

	argv := make([]string, len(command))
	for i, token := range command {
		argv[i] = strings.ReplaceAll(token, textPlaceholder, text)
	}

	return argv
}
