// Package migrations embeds the versioned SQL schema for the SQLite store.
package migrations

import "embed"

// FS holds the NNN_name.up.sql and NNN_name.down.sql files.
//
//go:embed *.sql
var FS embed.FS
