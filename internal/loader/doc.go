// Package loader turns a data source into an immutable table.Table.
//
// Supported sources:
//   - CSV files with a header row
//   - gzip or zstd compressed CSV (detected by magic bytes, not extension)
//   - a table inside a SQLite database (.db, .sqlite, .sqlite3)
//
// Every source goes through the same type inference: a column is a number
// if every non-empty cell parses as a finite number, a date if every
// non-empty cell parses as a date, and a string otherwise. Empty cells are
// null. String cells are normalized to Unicode NFC so that visually equal
// values compare equal.
//
// Load reports failures as *LoadError. LoadOrEmpty never fails: it
// substitutes an empty table carrying a diagnostic note, so a server can
// start (and answer every query with zero rows) even when its data source
// is missing.
package loader
