package core

// validation.go provides record-level validation for stock snapshot rows.
//
// Validation happens at two levels:
//  1. Shape validation: exactly four non-empty fields, numeric stock count
//  2. Conversion: the date and stock count parse into a typed StagedRow
//
// Either failure is reported as a MalformedRowError, which aborts the chunk
// and the session. Rows are never skipped.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are assumed
// to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// Validation failure reasons. MapError maps each to a ROW code.
var (
	ErrWrongFieldCount = errors.New("wrong field count")
	ErrEmptyField      = errors.New("empty field")
	ErrNonNumericStock = errors.New("non-numeric stock count")
	ErrInvalidDate     = errors.New("invalid date")
	ErrStockOverflow   = errors.New("stock count out of range")
)

// ValidationError describes why a single record is malformed.
type ValidationError struct {
	Field  int    // Field position, -1 when the record shape is wrong
	Value  string // The offending value
	Reason error  // One of the Err* validation reasons
}

func (e *ValidationError) Error() string {
	if e.Field < 0 {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s in %s: %q", e.Reason, FieldName(e.Field), e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// MalformedRowError reports the row that made a chunk fail.
type MalformedRowError struct {
	Chunk    int      // 1-based chunk number within the session
	Position int      // 0-based position of the row within its chunk
	Line     int      // 1-based line in the source file, header included
	Fields   []string // The raw record
	Err      error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d (chunk %d, row %d): %v [%s]",
		e.Line, e.Chunk, e.Position, e.Err, strings.Join(e.Fields, ";"))
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// FieldName returns the display name of a record field position.
func FieldName(pos int) string {
	switch pos {
	case FieldPointOfSale:
		return "point of sale"
	case FieldProduct:
		return "product"
	case FieldDate:
		return "date"
	case FieldStock:
		return "stock"
	default:
		return fmt.Sprintf("field %d", pos+1)
	}
}

// ValidateRow checks a raw record for shape and type well-formedness.
// A record is valid iff it has exactly four fields, none of them empty, and
// the stock count is composed entirely of numeric characters.
func ValidateRow(row RawRow) error {
	if len(row) != RecordWidth {
		return &ValidationError{
			Field:  -1,
			Reason: fmt.Errorf("%w: expected %d, got %d", ErrWrongFieldCount, RecordWidth, len(row)),
		}
	}

	for i, v := range row {
		if v == "" {
			return &ValidationError{Field: i, Value: v, Reason: ErrEmptyField}
		}
	}

	if !isNumeric(row[FieldStock]) {
		return &ValidationError{Field: FieldStock, Value: row[FieldStock], Reason: ErrNonNumericStock}
	}

	return nil
}

// ParseRow validates a raw record and converts it to a StagedRow.
func ParseRow(row RawRow) (StagedRow, error) {
	if err := ValidateRow(row); err != nil {
		return StagedRow{}, err
	}

	date, ok := ParseDate(row[FieldDate])
	if !ok {
		return StagedRow{}, &ValidationError{Field: FieldDate, Value: row[FieldDate], Reason: ErrInvalidDate}
	}

	stock, err := strconv.ParseInt(row[FieldStock], 10, 64)
	if err != nil {
		// Non-ASCII digits pass isNumeric but cannot be parsed.
		reason := ErrStockOverflow
		if errors.Is(err, strconv.ErrSyntax) {
			reason = ErrNonNumericStock
		}
		return StagedRow{}, &ValidationError{Field: FieldStock, Value: row[FieldStock], Reason: reason}
	}

	return StagedRow{
		Date:            date,
		Stock:           stock,
		ProductName:     row[FieldProduct],
		PointOfSaleName: row[FieldPointOfSale],
	}, nil
}

// ParseDate parses a date cell using the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// isNumeric returns true if s is non-empty and every rune is a digit.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
