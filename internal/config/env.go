package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oshokin/edge-alert/internal/logger"
)

// Environment variable names. Durations ending in _SEC accept fractional seconds.
const (
	EnvLEDPin                  = "EDGE_LED_GPIO_PIN"
	EnvDangerLEDPins           = "EDGE_DANGER_LED_PINS"
	EnvSafeLEDPins             = "EDGE_SAFE_LED_PINS"
	EnvPinMode                 = "EDGE_GPIO_PIN_MODE"
	EnvBuzzerPin               = "EDGE_BUZZER_GPIO_PIN"
	EnvSirenCommand            = "EDGE_SIREN_COMMAND"
	EnvSirenOn                 = "EDGE_SIREN_ON_SEC"
	EnvSirenOff                = "EDGE_SIREN_OFF_SEC"
	EnvSimulate                = "EDGE_SIMULATE_ALERT_ONLY"
	EnvTTSEnabled              = "EDGE_TTS_ENABLED"
	EnvTTSCommand              = "EDGE_TTS_COMMAND"
	EnvTTSPiperModel           = "EDGE_TTS_PIPER_MODEL"
	EnvTTSPiperSpeakerID       = "EDGE_TTS_PIPER_SPEAKER_ID"
	EnvTTSTimeout              = "EDGE_TTS_TIMEOUT_SEC"
	EnvProcessGrace            = "EDGE_PROCESS_GRACE_SEC"
	EnvAlertDuration           = "EDGE_ALERT_DURATION_SEC"
	EnvDangerCooldown          = "EDGE_DANGER_COOLDOWN_SEC"
	EnvServerWAVOnly           = "EDGE_SERVER_WAV_ONLY"
	EnvTTSEventSummaryFallback = "EDGE_TTS_EVENT_SUMMARY_FALLBACK"
	EnvSourceID                = "EDGE_SOURCE_ID"
	EnvLogLevel                = "EDGE_LOG_LEVEL"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// loadDotenv exports the variables of a dotenv file without overriding the real environment.
func loadDotenv(path string, explicit bool) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load env file %s: %w", path, err)
}

// applyEnv overrides cfg with the EDGE_* variables found through lookup.
// Unparseable values are logged and leave the current value untouched.
func applyEnv(ctx context.Context, cfg *Config, lookup lookupFunc) {
	ctx = logger.WithName(ctx, "config")
	env := envReader{ctx: ctx, lookup: lookup}

	env.int(EnvLEDPin, &cfg.LEDPin)
	env.intList(EnvDangerLEDPins, &cfg.DangerLEDPins)
	env.intList(EnvSafeLEDPins, &cfg.SafeLEDPins)
	env.string(EnvPinMode, &cfg.PinMode)
	env.optionalInt(EnvBuzzerPin, &cfg.BuzzerPin)
	env.string(EnvSirenCommand, &cfg.SirenCommand)
	env.seconds(EnvSirenOn, &cfg.SirenOn)
	env.seconds(EnvSirenOff, &cfg.SirenOff)
	env.bool(EnvSimulate, &cfg.Simulate)
	env.bool(EnvTTSEnabled, &cfg.TTSEnabled)
	env.string(EnvTTSCommand, &cfg.TTSCommand)
	env.string(EnvTTSPiperModel, &cfg.TTSPiperModel)
	env.optionalInt(EnvTTSPiperSpeakerID, &cfg.TTSPiperSpeakerID)
	env.seconds(EnvTTSTimeout, &cfg.TTSTimeout)
	env.seconds(EnvProcessGrace, &cfg.ProcessGrace)
	env.seconds(EnvAlertDuration, &cfg.AlertDuration)
	env.seconds(EnvDangerCooldown, &cfg.DangerCooldown)
	env.bool(EnvServerWAVOnly, &cfg.ServerWAVOnly)
	env.bool(EnvTTSEventSummaryFallback, &cfg.TTSEventSummaryFallback)
	env.string(EnvSourceID, &cfg.SourceID)
	env.string(EnvLogLevel, &cfg.LogLevel)
}

type envReader struct {
	ctx    context.Context //nolint:containedctx // Only used for logging while reading.
	lookup lookupFunc
}

// value returns the trimmed variable and whether it is set and non-empty.
func (e envReader) value(key string) (string, bool) {
	raw, ok := e.lookup(key)
	if !ok {
		return "", false
	}

	raw = strings.TrimSpace(raw)

	return raw, raw != ""
}

func (e envReader) invalid(key, raw string, err error) {
	logger.WarnKV(e.ctx, "Invalid environment value ignored", "variable", key, "value", raw, "error", err)
}

func (e envReader) string(key string, dst *string) {
	if raw, ok := e.value(key); ok {
		*dst = raw
	}
}

func (e envReader) bool(key string, dst *bool) {
	raw, ok := e.value(key)
	if !ok {
		return
	}

	v, err := strconv.ParseBool(strings.ToLower(raw))
	if err != nil {
		e.invalid(key, raw, err)
		return
	}

	*dst = v
}

func (e envReader) int(key string, dst *int) {
	raw, ok := e.value(key)
	if !ok {
		return
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		e.invalid(key, raw, err)
		return
	}

	*dst = v
}

func (e envReader) optionalInt(key string, dst **int) {
	raw, ok := e.value(key)
	if !ok {
		return
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		e.invalid(key, raw, err)
		return
	}

	*dst = &v
}

// intList parses comma or space separated integers, e.g. "17,27" or "17 27".
func (e envReader) intList(key string, dst *[]int) {
	raw, ok := e.value(key)
	if !ok {
		return
	}

	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})

	pins := make([]int, 0, len(fields))

	for _, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			e.invalid(key, raw, err)
			return
		}

		pins = append(pins, v)
	}

	*dst = pins
}

func (e envReader) seconds(key string, dst *time.Duration) {
	raw, ok := e.value(key)
	if !ok {
		return
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = strconv.ErrRange
	}

	if err != nil {
		e.invalid(key, raw, err)
		return
	}

	*dst = time.Duration(v * float64(time.Second))
}
