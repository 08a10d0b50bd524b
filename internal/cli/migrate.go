package cli

import (
	"errors"
	"io"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/db"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

// NewMigrateCommand creates the migrate command and its up/down/version
// subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	var path string
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default MIGRATIONS_PATH)")

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, path, func(m *db.Migrator) error {
				return m.Down(steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 rolls back all)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, path, func(m *db.Migrator) error {
				return m.Up()
			})
		},
	})
	cmd.AddCommand(down)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(rootOpts, path, func(m *db.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				return writeResult(cmd.OutOrStdout(), rootOpts.Format,
					map[string]interface{}{"version": version, "dirty": dirty},
					func(w io.Writer) { printf(w, "version %d (dirty: %t)\n", version, dirty) })
			})
		},
	})

	return cmd
}

func withMigrator(opts *RootOptions, path string, fn func(*db.Migrator) error) error {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return errNoDatabase
	}
	if path == "" {
		path = cfg.MigrationsPath
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logger.New("famctl", level, opts.Format == "json").Component("Migrate")

	m, err := db.NewMigrator(cfg.DatabaseURL, path, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
