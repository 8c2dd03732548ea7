// Package migrations embeds the remote moments table schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
