//go:build sqlite_cgo

package storage

// Compiled with CGO_ENABLED=1 go build -tags sqlite_cgo ./...
// Uses github.com/mattn/go-sqlite3, which is faster when benchmarks
// write large runs.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver name
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
