package postgres

import "embed"

// MigrationsFS holds the embedded goose migration files so callers can
// apply schema changes without depending on the working directory layout.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir is the path of the migration files inside MigrationsFS.
const MigrationsDir = "migrations"
