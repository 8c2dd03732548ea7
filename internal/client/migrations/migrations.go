// Package migrations holds the local store schema: SQL steps embedded from
// this directory plus the Go data upgrade registered as version 3.
package migrations

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var Migrations embed.FS

// LatestVersion is the schema version a fully migrated store reports.
const LatestVersion int64 = 3

// GoMigrations returns the Go steps to register with a goose provider.
func GoMigrations() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(3,
			&goose.GoFunc{RunTx: upgradeV3},
			&goose.GoFunc{RunTx: noop},
		),
	}
}
