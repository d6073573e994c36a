// Package speech turns text and server-rendered WAV audio into sound.
//
// The speech strategy is chosen once, in New, by walking an ordered list of
// candidates: disabled, simulated, an explicit command, local neural TTS with
// Piper, then console synthesizers. Playback goes through the first player
// binary found on PATH. Nothing here returns an error to the caller: failures
// and timeouts are logged and speech degrades to silence.
package speech
