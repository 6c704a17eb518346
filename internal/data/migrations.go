package data

import (
	"context"
	"database/sql"

	"github.com/chorusapp/sessiond/internal/migrate"
)

// RunMigrations sets up the user directory schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
