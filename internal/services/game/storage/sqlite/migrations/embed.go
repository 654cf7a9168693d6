// Package migrations embeds the SQLite audit schema.
package migrations

import "embed"

//go:embed audit/*.sql
var AuditFS embed.FS
