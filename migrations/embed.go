// Package migrations embebe los scripts SQL de esquema por driver.
package migrations

import "embed"

// FS contiene postgres/*.sql y sqlite/*.sql. Sólo se aplican los *_up.sql,
// en orden lexicográfico.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
