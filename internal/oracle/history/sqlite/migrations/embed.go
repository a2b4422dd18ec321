// Package migrations contains embedded SQL migrations for the history store.
package migrations

import "embed"

//go:embed history/*.sql
var HistoryFS embed.FS
