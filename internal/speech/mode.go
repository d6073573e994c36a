package speech

// Mode is the speech strategy selected at construction.
type Mode string

const (
	// ModeDisabled means TTS is switched off in the configuration.
	ModeDisabled Mode = "disabled"
	// ModeSimulated logs the text instead of speaking it.
	ModeSimulated Mode = "simulated"
	// ModeCommand runs the configured TTS command.
	ModeCommand Mode = "command"
	// ModeLocalNeural synthesizes with Piper and plays the result.
	ModeLocalNeural Mode = "local-neural"
	// ModeConsole runs a console synthesizer such as espeak-ng.
	ModeConsole Mode = "console"
	// ModeUnavailable means no strategy could be resolved.
	ModeUnavailable Mode = "unavailable"
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	return string(m)
}

// textPlaceholder is replaced by the spoken text in command tokens.
const textPlaceholder = "{text}"

// piperBinary is the local neural TTS executable.
const piperBinary = "piper"

// consoleSynthesizers are tried in order when no better strategy is available.
var consoleSynthesizers = []string{"espeak-ng", "espeak", "spd-say", "say"}

// playerCandidate is a WAV player and the arguments placed before the file path.
type playerCandidate struct {
	name string
	args []string
}

// players are tried in order; the first one on PATH plays every WAV file.
var players = []playerCandidate{
	{name: "ffplay", args: []string{"-nodisp", "-autoexit"}},
	{name: "aplay", args: []string{"-q"}},
	{name: "paplay"},
}
