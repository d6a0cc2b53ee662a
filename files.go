package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsPath is the directory inside GetMigrationsFS holding the
// migrations for dialect.
func MigrationsPath(dialect string) string {
	return "data/sql/migrations/" + dialect
}

// DialectMigrations returns the migration files for dialect rooted at the
// dialect directory.
func DialectMigrations(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, MigrationsPath(dialect))
}
