// Package sqlitedriver selects the SQLite database/sql driver at build time.
//
// The default build uses the pure Go modernc.org/sqlite driver. Building with
// the cgo_sqlite tag switches to github.com/mattn/go-sqlite3. Callers open
// databases through Open so the right driver name is always used.
package sqlitedriver

import (
	"database/sql"
	"fmt"
)

// DriverName returns the database/sql driver name.
func DriverName() string { return driverName }

// DriverType returns "purego" or "cgo".
func DriverType() string { return driverType }

// IsCGO reports whether the CGO driver is compiled in.
func IsCGO() bool { return driverType == "cgo" }

// Open opens a SQLite database file (or ":memory:").
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(path + "?mode=ro")
}

// Info describes the compiled-in driver.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns the driver description.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
