package scenario

import "embed"

// sqlSchemas embeds the catalog's migration files at compile time.
//
//go:embed migrations/*.sql
var sqlSchemas embed.FS
