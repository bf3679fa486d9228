// Package migrations embeds the goose migrations for the local upload journal.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
