//go:build !sqlite_cgo

package storage

// Default build: pure Go SQLite from modernc.org/sqlite, no C toolchain
// needed.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
