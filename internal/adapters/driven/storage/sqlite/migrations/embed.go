// Package migrations embeds the SQL migrations of the results database.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
// Files are named NNN_description.up.sql / .down.sql and applied in order.
//
//go:embed *.sql
var FS embed.FS
