package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression names the encoding detected on a CSV stream.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// detectCompression looks at the first bytes of the stream without
// consuming them.
func detectCompression(br *bufio.Reader) Compression {
	head, _ := br.Peek(len(zstdMagic))
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// decompress wraps br according to its detected compression. The returned
// close function releases decoder resources; it does not close br.
func decompress(br *bufio.Reader) (io.Reader, Compression, func(), error) {
	switch c := detectCompression(br); c {
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, nil, err
		}
		return zr, c, func() { zr.Close() }, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, nil, err
		}
		return zr, c, zr.Close, nil
	default:
		return br, c, func() {}, nil
	}
}

// readCSV parses a CSV stream (optionally compressed) into a rawTable.
// The first record is the header; every record must have the same number
// of fields as the header.
func readCSV(path string, r io.Reader) (*rawTable, Compression, error) {
	br := bufio.NewReader(r)
	plain, comp, release, err := decompress(br)
	if err != nil {
		return nil, comp, malformed(path, err, "opening %s stream", comp)
	}
	defer release()

	cr := csv.NewReader(plain)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, comp, malformed(path, nil, "empty source")
	}
	if err != nil {
		return nil, comp, csvError(path, err)
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, comp, csvError(path, err)
	}
	if records == nil {
		records = [][]string{}
	}

	return &rawTable{header: header, rows: records}, comp, nil
}

// csvError classifies a read failure: I/O problems are SOURCE_UNAVAILABLE,
// everything else (parse errors, corrupt compressed data) is
// SOURCE_MALFORMED.
func csvError(path string, err error) *LoadError {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return unavailable(path, err, "reading source")
	}
	return malformed(path, err, "parsing CSV")
}
