package configdump

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/edge-alert/internal/config"
	"github.com/oshokin/edge-alert/internal/logger"
	"github.com/oshokin/edge-alert/internal/service/common"
)

var (
	// ErrOutputNotSet is returned when no output path is given.
	ErrOutputNotSet = errors.New("output path is not set")
	// ErrOutputExists is returned when the output file exists and Force is not set.
	ErrOutputExists = errors.New("output file already exists")
)

// Options of the dump command.
type Options struct {
	// Config selects and overrides the configuration.
	Config common.ConfigOptions
	// Output is the YAML file to write.
	Output string
	// Force overwrites an existing output file.
	Force bool
}

// Run loads the configuration and writes it to opts.Output.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "config-dump")

	if opts.Output == "" {
		return ErrOutputNotSet
	}

	if !opts.Force {
		if _, err := os.Stat(opts.Output); err == nil {
			return fmt.Errorf("%s: %w", opts.Output, ErrOutputExists)
		}
	}

	cfg, err := common.LoadConfig(ctx, opts.Config)
	if err != nil {
		return err
	}

	if err = config.Save(opts.Output, cfg); err != nil {
		return fmt.Errorf("save configuration: %w", err)
	}

	logger.InfoKV(ctx, "Configuration written", "path", opts.Output)

	return nil
}
