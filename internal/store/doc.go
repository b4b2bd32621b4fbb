// Package store provides SQLite-backed storage for tables.
//
// A SQLite database is one of the sources the loader accepts: a single table
// is read in rowid order and handed to type inference exactly like a CSV
// file would be. The import command uses the write side to turn a CSV file
// into such a database.
//
// # Encoding
//
// Numbers are stored as REAL and dates as TEXT in YYYY-MM-DD form, so that
// text comparison in SQL orders dates chronologically. The querysql package
// relies on this encoding when it renders a query as SQL.
//
// # Thread Safety
//
// Store uses a single connection; database/sql serializes access to it.
package store
