package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/datatool/internal/store"
)

// sqliteMagic is the first 16 bytes of every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// sqliteExtensions are recognised even when the file is too short to carry
// the magic header (an empty file SQLite would treat as a new database).
var sqliteExtensions = map[string]bool{
	".db":      true,
	".sqlite":  true,
	".sqlite3": true,
}

func hasSQLiteExtension(path string) bool {
	return sqliteExtensions[strings.ToLower(filepath.Ext(path))]
}

// readSQLite reads one table of a SQLite database into a rawTable.
//
// With an empty name the database must contain exactly one table.
func readSQLite(ctx context.Context, path, name string) (*rawTable, string, error) {
	s, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, "", unavailable(path, err, "opening database")
	}
	defer s.Close()

	if name == "" {
		tables, err := s.Tables(ctx)
		if err != nil {
			return nil, "", malformed(path, err, "listing tables")
		}
		switch len(tables) {
		case 0:
			return nil, "", malformed(path, nil, "database has no tables")
		case 1:
			name = tables[0]
		default:
			return nil, "", malformed(path, nil,
				"database has %d tables, choose one of: %s", len(tables), strings.Join(tables, ", "))
		}
	}

	raw, err := s.ReadTable(ctx, name)
	if errors.Is(err, store.ErrTableNotFound) {
		return nil, name, notFound(path, fmt.Errorf("table %q: %w", name, err))
	}
	if err != nil {
		return nil, name, malformed(path, err, "reading table %q", name)
	}

	return &rawTable{header: raw.Columns, rows: raw.Rows, null: raw.Null}, name, nil
}
