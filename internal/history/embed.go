package history

import "embed"

// MigrationFS embeds the run-history schema so no migration files need to
// exist on disk at runtime (adapted from the teacher's internal/db
// package).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
