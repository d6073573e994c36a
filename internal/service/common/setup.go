package common

import (
	"context"
	"fmt"

	"github.com/oshokin/edge-alert/internal/alert"
	"github.com/oshokin/edge-alert/internal/config"
	"github.com/oshokin/edge-alert/internal/logger"
)

// ConfigOptions are the configuration flags shared by every command.
type ConfigOptions struct {
	// ConfigPath is the YAML file, empty for the default.
	ConfigPath string
	// EnvFile is the dotenv file, empty for the default.
	EnvFile string
	// LogLevel overrides the configured level when set.
	LogLevel string
	// Simulate forces simulate mode when set.
	Simulate bool
}

// LoadConfig loads the configuration, applies the command line overrides and
// sets the global log level.
func LoadConfig(ctx context.Context, opts ConfigOptions) (*config.Config, error) {
	cfg, err := config.Load(ctx, config.Options{
		ConfigPath: opts.ConfigPath,
		EnvFile:    opts.EnvFile,
	})
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Command line flags win over the file and the environment.
	if opts.Simulate {
		cfg.Simulate = true
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return nil, fmt.Errorf("log level %q: %w", cfg.LogLevel, ErrUnknownLogLevel)
	}

	logger.SetLevel(level)

	return cfg, nil
}

// NewController builds the alert controller and logs what it runs on.
func NewController(ctx context.Context, cfg *config.Config, options ...alert.Option) *alert.Controller {
	controller := alert.New(ctx, cfg, options...)

	kvs := []any{
		"indicator", controller.IndicatorKind(),
		"speech", controller.SpeechMode(),
		"simulate", cfg.Simulate,
		"source_id", cfg.SourceID,
	}

	if actor, err := DetectActor(); err == nil {
		kvs = append(kvs, "actor", actor.String())
	}

	logger.InfoKV(ctx, "Alert output ready", kvs...)

	return controller
}
