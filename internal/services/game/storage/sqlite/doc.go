// Package sqlite implements the audit store on modernc.org/sqlite, a pure Go
// SQLite driver. The schema is embedded and migrated on Open.
package sqlite
