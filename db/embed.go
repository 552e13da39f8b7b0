package db

import "embed"

// MigrationsFS holds the SQL schema migrations compiled into the binary,
// so the bot and depotctl can migrate without shipping loose files.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
