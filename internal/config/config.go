package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/edge-alert/internal/domain/alert"
	"github.com/oshokin/edge-alert/internal/logger"
)

// Config is the alert configuration. It is built once at startup and never
// changed afterwards; components copy the fields they need.
type Config struct {
	// LEDPin is the single danger LED used when DangerLEDPins is empty.
	LEDPin int `yaml:"led_pin"`
	// DangerLEDPins are lit while a danger pulse is active.
	DangerLEDPins []int `yaml:"danger_led_pins"`
	// SafeLEDPins are lit while idle.
	SafeLEDPins []int `yaml:"safe_led_pins"`
	// PinMode is BCM or BOARD.
	PinMode string `yaml:"pin_mode"`
	// BuzzerPin is the optional buzzer output.
	BuzzerPin *int `yaml:"buzzer_pin"`
	// SirenCommand is an optional external siren command line.
	SirenCommand string `yaml:"siren_command"`
	// SirenOn is how long the buzzer sounds per duty cycle.
	SirenOn time.Duration `yaml:"siren_on"`
	// SirenOff is the silence between buzzer beeps.
	SirenOff time.Duration `yaml:"siren_off"`
	// Simulate replaces every hardware and audio operation with a log line.
	Simulate bool `yaml:"simulate"`

	// TTSEnabled turns speech output on.
	TTSEnabled bool `yaml:"tts_enabled"`
	// TTSCommand is an explicit TTS command line; {text} is replaced by the text.
	TTSCommand string `yaml:"tts_command"`
	// TTSPiperModel is the path of a Piper voice model for local neural TTS.
	TTSPiperModel string `yaml:"tts_piper_model"`
	// TTSPiperSpeakerID selects a speaker of a multi-speaker Piper model.
	TTSPiperSpeakerID *int `yaml:"tts_piper_speaker_id"`
	// TTSTimeout bounds each speech subprocess.
	TTSTimeout time.Duration `yaml:"tts_timeout"`
	// ProcessGrace is the delay between SIGTERM and SIGKILL for any subprocess.
	ProcessGrace time.Duration `yaml:"process_grace"`

	// AlertDuration is the length of one danger pulse.
	AlertDuration time.Duration `yaml:"alert_duration"`
	// DangerCooldown suppresses repeated pulses for this long after one fired.
	DangerCooldown time.Duration `yaml:"danger_cooldown"`
	// ServerWAVOnly disables text TTS fallbacks when the server audio is missing or fails.
	ServerWAVOnly bool `yaml:"server_wav_only"`
	// TTSEventSummaryFallback speaks the local event summary when the server sends no text.
	TTSEventSummaryFallback bool `yaml:"tts_event_summary_fallback"`
	// SourceID identifies this device in event logs.
	SourceID string `yaml:"source_id"`
	// LogLevel is the minimum log level.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default YAML file name. A missing default file is not an error.
	DefaultConfigFilename = "edge-alert.yaml"

	// DefaultEnvFilename is the default dotenv file name. A missing default file is not an error.
	DefaultEnvFilename = ".env"

	// DefaultLEDPin is the BCM pin of the reference board's danger LED.
	DefaultLEDPin = 17

	// DefaultSirenOn and DefaultSirenOff shape the buzzer duty cycle.
	DefaultSirenOn  = 150 * time.Millisecond
	DefaultSirenOff = 80 * time.Millisecond

	// MinSirenInterval is the floor applied to both duty cycle halves.
	MinSirenInterval = 10 * time.Millisecond

	// DefaultTTSTimeout bounds a single speech subprocess.
	DefaultTTSTimeout = 8 * time.Second

	// DefaultProcessGrace is the SIGTERM-to-SIGKILL delay.
	DefaultProcessGrace = time.Second

	// DefaultAlertDuration is the length of one danger pulse.
	DefaultAlertDuration = 3 * time.Second

	// DefaultDangerCooldown is the minimum spacing between pulses.
	DefaultDangerCooldown = 30 * time.Second

	// DefaultSourceID names the reference device.
	DefaultSourceID = "jetson-orin-nano-01"

	// DefaultFilePermissions is used when writing config files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Default returns the configuration used when nothing is configured: simulate
// mode with speech enabled, which is safe on a development machine.
func Default() *Config {
	return &Config{
		LEDPin:                  DefaultLEDPin,
		PinMode:                 string(domain.PinModeBCM),
		SirenOn:                 DefaultSirenOn,
		SirenOff:                DefaultSirenOff,
		Simulate:                true,
		TTSEnabled:              true,
		TTSTimeout:              DefaultTTSTimeout,
		ProcessGrace:            DefaultProcessGrace,
		AlertDuration:           DefaultAlertDuration,
		DangerCooldown:          DefaultDangerCooldown,
		TTSEventSummaryFallback: true,
		SourceID:                DefaultSourceID,
		LogLevel:                "info",
	}
}

// Options selects the files Load reads.
type Options struct {
	// ConfigPath is the YAML file. Empty means DefaultConfigFilename.
	ConfigPath string
	// EnvFile is the dotenv file. Empty means DefaultEnvFilename.
	EnvFile string
}

// Load builds the configuration from defaults, the YAML file, the dotenv file
// and the process environment, then validates it.
// Missing default files are skipped; an explicitly named file must exist.
func Load(ctx context.Context, opts Options) (*Config, error) {
	cfg := Default()

	configPath, explicit := opts.ConfigPath, opts.ConfigPath != ""
	if !explicit {
		configPath = DefaultConfigFilename
	}

	if err := readYAML(configPath, explicit, cfg); err != nil {
		return nil, err
	}

	envFile, explicit := opts.EnvFile, opts.EnvFile != ""
	if !explicit {
		envFile = DefaultEnvFilename
	}

	if err := loadDotenv(envFile, explicit); err != nil {
		return nil, err
	}

	applyEnv(ctx, cfg, os.LookupEnv)

	if err := Validate(ctx, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate corrects invalid values in place, logging one warning per correction.
// It only fails for a nil configuration.
func Validate(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	ctx = logger.WithName(ctx, "config")

	mode, ok := domain.ParsePinMode(cfg.PinMode)
	if !ok {
		logger.WarnKV(ctx, "Unknown pin mode, using BCM", "pin_mode", cfg.PinMode)
	}

	cfg.PinMode = string(mode)

	if len(cfg.DangerLEDPins) == 0 {
		cfg.DangerLEDPins = []int{cfg.LEDPin}
	}

	cfg.DangerLEDPins = dropNegative(ctx, "danger_led_pins", cfg.DangerLEDPins)
	cfg.SafeLEDPins = dropNegative(ctx, "safe_led_pins", cfg.SafeLEDPins)

	if cfg.BuzzerPin != nil && *cfg.BuzzerPin < 0 {
		logger.WarnKV(ctx, "Negative buzzer pin ignored", "buzzer_pin", *cfg.BuzzerPin)
		cfg.BuzzerPin = nil
	}

	cfg.SirenOn = floorDuration(ctx, "siren_on", cfg.SirenOn, MinSirenInterval)
	cfg.SirenOff = floorDuration(ctx, "siren_off", cfg.SirenOff, MinSirenInterval)

	if _, err := splitCommand(cfg.SirenCommand); err != nil {
		logger.WarnKV(ctx, "Siren command cannot be parsed, siren disabled", "siren_command", cfg.SirenCommand, "error", err)
		cfg.SirenCommand = ""
	}

	if _, err := splitCommand(cfg.TTSCommand); err != nil {
		logger.WarnKV(ctx, "TTS command cannot be parsed, ignoring it", "tts_command", cfg.TTSCommand, "error", err)
		cfg.TTSCommand = ""
	}

	cfg.TTSTimeout = positiveDuration(ctx, "tts_timeout", cfg.TTSTimeout, DefaultTTSTimeout)
	cfg.ProcessGrace = positiveDuration(ctx, "process_grace", cfg.ProcessGrace, DefaultProcessGrace)

	if cfg.AlertDuration < 0 {
		logger.WarnKV(ctx, "Negative alert duration, using default", "alert_duration", cfg.AlertDuration)
		cfg.AlertDuration = DefaultAlertDuration
	}

	if cfg.DangerCooldown < 0 {
		logger.WarnKV(ctx, "Negative danger cooldown, disabling it", "danger_cooldown", cfg.DangerCooldown)
		cfg.DangerCooldown = 0
	}

	if cfg.SourceID == "" {
		cfg.SourceID = DefaultSourceID
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		logger.WarnKV(ctx, "Unknown log level, using info", "log_level", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return nil
}

// SirenArgv returns the siren command split into argv, or nil when none is set.
func (c *Config) SirenArgv() []string {
	argv, _ := splitCommand(c.SirenCommand)
	return argv
}

// TTSArgv returns the explicit TTS command split into argv, or nil when none is set.
func (c *Config) TTSArgv() []string {
	argv, _ := splitCommand(c.TTSCommand)
	return argv
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cloned := *c
	cloned.DangerLEDPins = slices.Clone(c.DangerLEDPins)
	cloned.SafeLEDPins = slices.Clone(c.SafeLEDPins)

	if c.BuzzerPin != nil {
		pin := *c.BuzzerPin
		cloned.BuzzerPin = &pin
	}

	if c.TTSPiperSpeakerID != nil {
		id := *c.TTSPiperSpeakerID
		cloned.TTSPiperSpeakerID = &id
	}

	return &cloned
}

func readYAML(path string, explicit bool, cfg *Config) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}

func splitCommand(command string) ([]string, error) {
	if command == "" {
		return nil, nil
	}

	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("split command: %w", err)
	}

	if len(argv) == 0 {
		return nil, nil
	}

	return argv, nil
}

func dropNegative(ctx context.Context, field string, pins []int) []int {
	result := make([]int, 0, len(pins))

	for _, pin := range pins {
		if pin < 0 {
			logger.WarnKV(ctx, "Negative pin ignored", "field", field, "pin", pin)
			continue
		}

		result = append(result, pin)
	}

	return result
}

func floorDuration(ctx context.Context, field string, value, floor time.Duration) time.Duration {
	if value < floor {
		logger.WarnKV(ctx, "Duration below floor, raised", "field", field, "value", value, "floor", floor)
		return floor
	}

	return value
}

func positiveDuration(ctx context.Context, field string, value, fallback time.Duration) time.Duration {
	if value <= 0 {
		logger.WarnKV(ctx, "Duration must be positive, using default", "field", field, "value", value, "default", fallback)
		return fallback
	}

	return value
}
