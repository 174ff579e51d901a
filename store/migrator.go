package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

// Migrate applies the full schema when the database is uninitialized.
//
// The schema lives in store/migration/{driver}/LATEST.sql and is embedded at
// build time. There is no incremental migration chain yet; the engine owns
// only two tables and the schema has not needed a breaking change. When it
// does, versioned migration files go next to LATEST.sql and this function
// grows the incremental walk the same way the schema bootstrap works now.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	filePath := fmt.Sprintf("migration/%s/LATEST.sql", s.profile.Driver)
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read migration file %q", filePath)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to apply schema %q", filePath)
	}

	slog.Info("database schema initialized", slog.String("driver", s.profile.Driver))
	return nil
}
