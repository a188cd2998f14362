// Package bumpdb holds all the migrations for the bump engine database
package bumpdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the bump engine database
var Migrations = migrate.NewMigrations()
