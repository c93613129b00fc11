package core

// streaming.go provides the reader stack for raw extract files.
//
// Raw extracts often come out of spreadsheet tools:
//
//   - UTF-8 BOM (0xEF 0xBB 0xBF) in front of the header row
//   - Stray invalid UTF-8 bytes inside free-text columns
//
// NewSourceReader strips the BOM and replaces invalid sequences with U+FFFD
// while streaming, so the CSV parser sees a clean header and every value is
// valid UTF-8 for the columnar writer.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
// Used for per-table byte metrics.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// NewSourceReader wraps a raw file with BOM stripping and UTF-8 sanitization,
// counting the raw bytes consumed.
//
// The counter sits below the decoder so BytesRead reflects the file size,
// not the decoded size.
func NewSourceReader(r io.Reader) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return transform.NewReader(counter, decoder), counter
}
