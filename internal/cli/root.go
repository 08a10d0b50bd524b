// Package cli implements famctl, the operator command line for the family
// backend.
package cli

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/db"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for famctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "famctl",
		Short: "famctl - ORA Family operations",
		Long:  "Operator tooling for the ORA Family backend: schema migrations, fixtures, ledger checks and scheduled jobs.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewJobsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// runtime is what data commands share: configuration, a store and the
// services on top of it.
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	store    repository.Store
	services *service.Services
}

func newRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg := config.Load()
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New("famctl", level, opts.Format == "json")

	store, _, err := db.OpenStore(ctx, cfg.DatabaseURL, cfg.MigrationsPath, log.Component("DB"))
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:   cfg,
		log:   log,
		store: store,
		services: service.NewServices(&service.ServiceDeps{
			Config: cfg,
			Store:  store,
			Logger: log,
		}),
	}, nil
}

func (r *runtime) Close() {
	r.store.Close()
}
