// Package migrations embeds the goose migration files for each supported
// dialect. The directory name matches store.Dialect.
package migrations

import "embed"

//go:embed mysql/*.sql postgres/*.sql sqlite/*.sql
var FS embed.FS
