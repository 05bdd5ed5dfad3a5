// Package cli implements the eventboard command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/iieadb/eventboard/internal/adapters/repository"
	"github.com/iieadb/eventboard/internal/config"
	"github.com/iieadb/eventboard/pkg/logger"
)

// RootOptions holds global flags and collaborators shared by all commands.
type RootOptions struct {
	Format string // "json" | "text"

	// Config overrides configuration loading when set.
	Config *config.Config

	// Store overrides the configured event store. Commands do not close it.
	Store repository.Store

	// Prompter asks for delete confirmation; defaults to stdin.
	Prompter Prompter
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command reading configuration from the
// environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith creates the root command around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventboard",
		Short: "eventboard - sortable event listings",
		Long:  "Serve, list and delete events with per-creator delete permissions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Config == nil {
				cfg, err := config.Load(cmd.Context())
				if err != nil {
					return err
				}
				opts.Config = cfg
			}
			// logs go to stderr so JSON output stays clean
			if err := logger.InitWith(cmd.ErrOrStderr(), opts.Config.LogFormat); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			if err := logger.SetLevelString(opts.Config.LogLevel); err != nil {
				_ = logger.SetLevelString("info")
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
