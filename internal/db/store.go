package db

import (
	"context"

	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// OpenStore returns the Postgres store when databaseURL is set, running
// pending migrations first, and the in-memory store otherwise.
func OpenStore(ctx context.Context, databaseURL, migrationsPath string, log *logrus.Entry) (repository.Store, string, error) {
	if databaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return repository.NewMemoryStore(), "memory", nil
	}

	if err := RunMigrations(databaseURL, migrationsPath, log); err != nil {
		return nil, "", err
	}

	pg, err := NewPostgresDB(ctx, databaseURL, log)
	if err != nil {
		return nil, "", err
	}
	return repository.NewPostgresStore(pg.Pool), "postgres", nil
}
