// Package migrations embeds the console's schema migrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
