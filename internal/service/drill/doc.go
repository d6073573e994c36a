// Package drill holds the one-shot operator commands used to check an
// installed appliance: a single danger pulse, a spoken phrase, a WAV file,
// and a repeated pulse cycle for wiring checks.
package drill
