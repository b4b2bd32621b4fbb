package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/datatool/internal/table"
)

// Options configures a load.
type Options struct {
	// Table selects the table inside a SQLite source. Ignored for CSV.
	Table string

	// Logger receives load diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Load reads the source at path into a table.
//
// The format is detected from the content: SQLite databases by their magic
// header (or a .db/.sqlite/.sqlite3 extension), gzip and zstd by their
// magic bytes, and everything else is parsed as CSV.
//
// Errors are *LoadError with code SOURCE_NOT_FOUND, SOURCE_MALFORMED or
// SOURCE_UNAVAILABLE.
func Load(ctx context.Context, path string, opts Options) (*table.Table, error) {
	log := opts.logger()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(path, err)
	}
	if err != nil {
		return nil, unavailable(path, err, "accessing source")
	}
	if info.IsDir() {
		return nil, malformed(path, nil, "source is a directory")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, unavailable(path, err, "opening source")
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(sqliteMagic))

	var (
		raw  *rawTable
		kind string
	)
	if bytes.Equal(head, sqliteMagic) || hasSQLiteExtension(path) {
		// SQLite opens the file itself.
		f.Close()
		var name string
		raw, name, err = readSQLite(ctx, path, opts.Table)
		if err != nil {
			return nil, err
		}
		kind = "sqlite:" + name
	} else {
		var comp Compression
		raw, comp, err = readCSV(path, br)
		if err != nil {
			return nil, err
		}
		kind = "csv:" + string(comp)
	}

	tbl, err := raw.build(path)
	if err != nil {
		return nil, err
	}

	log.Debug("loaded table",
		"path", path,
		"format", kind,
		"rows", tbl.Len(),
		"columns", len(tbl.Columns()),
	)
	return tbl.WithSource(path, ""), nil
}

// LoadOrEmpty loads path, substituting an empty table when the load fails.
//
// The substitute carries a diagnostic note describing the failure, which
// query results pass on to callers. The failure is logged at ERROR.
func LoadOrEmpty(ctx context.Context, path string, opts Options) *table.Table {
	tbl, err := Load(ctx, path, opts)
	if err == nil {
		return tbl
	}

	opts.logger().Error("data source unavailable, serving an empty table",
		"path", path,
		"code", CodeOf(err),
		"error", err,
	)
	return table.Empty().WithSource(path, fmt.Sprintf("data source unavailable: %v", err))
}

// ReadCSV parses a CSV stream (optionally gzip or zstd compressed) into a
// table. source names the stream in errors and in the table's Source.
func ReadCSV(r io.Reader, source string) (*table.Table, error) {
	raw, _, err := readCSV(source, r)
	if err != nil {
		return nil, err
	}
	tbl, err := raw.build(source)
	if err != nil {
		return nil, err
	}
	return tbl.WithSource(source, ""), nil
}
