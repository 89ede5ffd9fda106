package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/trackloop/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the trackloop CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trackloop",
		Short: "trackloop - particle transport stepping loop",
		Long:  "Run Monte Carlo particle transport problems through a slot-based track stepping loop.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./trackloop.yaml)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// loadConfig merges defaults, the config file, TRACKLOOP_* variables and
// the given command flags. Flags are bound only when set on the command
// line so that they override, not shadow, the other sources.
func (o *RootOptions) loadConfig(flags *pflag.FlagSet, keys map[string]string) (*config.Config, error) {
	v, err := config.NewViper(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("failed to bind flag %q: %w", flag, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
