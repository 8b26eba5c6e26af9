package core

// reader.go tokenizes delimited stock files into bounded chunks.
//
// The reader never holds more than one chunk in memory:
//
//   - A UTF-8 BOM at the start of the file is skipped
//   - Invalid UTF-8 inside a field is replaced with U+FFFD
//   - The first record is always discarded as a header
//   - Records are returned as-is; ValidateRow decides whether they are usable

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultDelimiter separates fields in stock files.
const DefaultDelimiter = ';'

// DefaultChunkSize is the number of records staged per bulk statement.
const DefaultChunkSize = 1_000_000

// ContextCheckInterval is how often (in records) to check for cancellation.
var ContextCheckInterval = 1000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Chunk is a batch of raw records read from a source file.
type Chunk struct {
	Number int      // 1-based chunk number
	Rows   []RawRow // Records in file order
	Lines  []int    // 1-based file line where each record starts
}

// LineOf returns the file line of the record at position pos in the chunk.
func (c Chunk) LineOf(pos int) int {
	if pos < 0 || pos >= len(c.Lines) {
		return 0
	}
	return c.Lines[pos]
}

// ChunkReader reads a delimited file as a lazy sequence of chunks.
type ChunkReader struct {
	csv       *csv.Reader
	counter   *countingReader
	chunkSize int

	headerRead bool
	line       int // line of the last record read
	chunks     int
}

// NewChunkReader creates a reader that yields chunks of at most chunkSize
// records separated by delim.
func NewChunkReader(r io.Reader, delim rune, chunkSize int) (*ChunkReader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if delim == 0 {
		delim = DefaultDelimiter
	}
	if !validDelim(delim) {
		return nil, fmt.Errorf("invalid delimiter %q", delim)
	}

	counter := &countingReader{reader: r}
	br := bufio.NewReader(counter)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1 // field count is checked by ValidateRow
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	return &ChunkReader{
		csv:       cr,
		counter:   counter,
		chunkSize: chunkSize,
	}, nil
}

// Next returns the next chunk of records.
// Returns io.EOF when the input is exhausted.
func (r *ChunkReader) Next(ctx context.Context) (Chunk, error) {
	if !r.headerRead {
		r.headerRead = true
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return Chunk{}, io.EOF
			}
			return Chunk{}, fmt.Errorf("read header: %w", err)
		}
		r.line = 1
	}

	capacity := min(r.chunkSize, 4096)
	chunk := Chunk{
		Number: r.chunks + 1,
		Rows:   make([]RawRow, 0, capacity),
		Lines:  make([]int, 0, capacity),
	}

	for len(chunk.Rows) < r.chunkSize {
		if len(chunk.Rows)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Chunk{}, fmt.Errorf("read cancelled at line %d: %w", r.line+1, err)
			}
		}

		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Chunk{}, fmt.Errorf("invalid csv at line %d: %w", r.line+1, err)
		}

		r.line, _ = r.csv.FieldPos(0)
		chunk.Rows = append(chunk.Rows, sanitizeFields(record))
		chunk.Lines = append(chunk.Lines, r.line)
	}

	if len(chunk.Rows) == 0 {
		return Chunk{}, io.EOF
	}

	r.chunks++
	return chunk, nil
}

// BytesRead returns the number of bytes consumed from the source so far.
func (r *ChunkReader) BytesRead() int64 {
	return r.counter.n
}

// sanitizeFields replaces invalid UTF-8 sequences in place.
func sanitizeFields(record []string) RawRow {
	for i, f := range record {
		if !utf8.ValidString(f) {
			record[i] = strings.ToValidUTF8(f, "\uFFFD")
		}
	}
	return RawRow(record)
}

// validDelim mirrors the checks encoding/csv applies to Comma.
func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// countingReader tracks bytes read for progress logging.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n += int64(n)
	return n, err
}
