package migrations

import "embed"

// FS contains the embedded schema for both SQL backends.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
