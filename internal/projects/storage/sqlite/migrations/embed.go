package migrations

import "embed"

// FS contains embedded SQLite migrations for project progress storage.
//
//go:embed *.sql
var FS embed.FS
