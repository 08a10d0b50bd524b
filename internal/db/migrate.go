package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Migrator wraps a golang-migrate instance bound to the migrations directory.
type Migrator struct {
	m     *migrate.Migrate
	dbSQL *sql.DB
	log   *logrus.Entry
}

func NewMigrator(databaseURL, migrationsPath string, log *logrus.Entry) (*Migrator, error) {
	dbConn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(dbConn, &postgres.Config{})
	if err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{m: m, dbSQL: dbConn, log: log}, nil
}

func (mg *Migrator) Close() {
	mg.m.Close()
	mg.dbSQL.Close()
}

func (mg *Migrator) recoverDirty() error {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		mg.log.WithField("version", version).Warn("database is in a dirty state, forcing clean state")
		if err := mg.m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration: %w", err)
		}
	}
	return nil
}

// Up applies all pending migrations.
func (mg *Migrator) Up() error {
	if err := mg.recoverDirty(); err != nil {
		return err
	}
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	mg.log.Info("database migrations completed")
	return nil
}

// Down rolls back steps migrations, or all of them when steps <= 0.
func (mg *Migrator) Down(steps int) error {
	if err := mg.recoverDirty(); err != nil {
		return err
	}
	var err error
	if steps > 0 {
		err = mg.m.Steps(-steps)
	} else {
		err = mg.m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	mg.log.WithField("steps", steps).Info("database rollback completed")
	return nil
}

// Version reports the applied version and whether it is dirty.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// RunMigrations applies all pending migrations at startup.
func RunMigrations(databaseURL, migrationsPath string, log *logrus.Entry) error {
	mg, err := NewMigrator(databaseURL, migrationsPath, log)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
