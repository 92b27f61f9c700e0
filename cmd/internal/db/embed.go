// Package db owns the desk schema: embedded SQL migrations and the runner that applies them.
package db

import "embed"

// MigrationFS holds the golang-migrate files under migrations/.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
