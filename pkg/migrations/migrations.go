// Package migrations holds all schema migrations for the API database
package migrations

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry all numbered migration files attach to.
var Migrations = migrate.NewMigrations()
