package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name      string
		row       RawRow
		wantErr   error
		wantField int
	}{
		{"valid", RawRow{"StoreA", "Widget", "2024-01-01", "10"}, nil, 0},
		{"zero stock", RawRow{"StoreA", "Widget", "2024-01-01", "0"}, nil, 0},
		{"three fields", RawRow{"StoreA", "Widget", "2024-01-01"}, ErrWrongFieldCount, -1},
		{"five fields", RawRow{"StoreA", "Widget", "2024-01-01", "10", "x"}, ErrWrongFieldCount, -1},
		{"no fields", RawRow{}, ErrWrongFieldCount, -1},
		{"empty point of sale", RawRow{"", "Widget", "2024-01-01", "10"}, ErrEmptyField, FieldPointOfSale},
		{"empty product", RawRow{"StoreA", "", "2024-01-01", "10"}, ErrEmptyField, FieldProduct},
		{"empty date", RawRow{"StoreA", "Widget", "", "10"}, ErrEmptyField, FieldDate},
		{"empty stock", RawRow{"StoreA", "Widget", "2024-01-01", ""}, ErrEmptyField, FieldStock},
		{"negative stock", RawRow{"StoreA", "Widget", "2024-01-01", "-1"}, ErrNonNumericStock, FieldStock},
		{"decimal stock", RawRow{"StoreA", "Widget", "2024-01-01", "1.5"}, ErrNonNumericStock, FieldStock},
		{"stock with space", RawRow{"StoreA", "Widget", "2024-01-01", " 10"}, ErrNonNumericStock, FieldStock},
		{"letters in stock", RawRow{"StoreA", "Widget", "2024-01-01", "ten"}, ErrNonNumericStock, FieldStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRow(tt.row)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateRow() error = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateRow() error = %v, want %v", err, tt.wantErr)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error %T is not a *ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %d, want %d", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestParseRow(t *testing.T) {
	row, err := ParseRow(RawRow{"StoreA", "Widget", "2024-01-01", "10"})
	if err != nil {
		t.Fatalf("ParseRow() error = %v", err)
	}

	want := StagedRow{
		Date:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Stock:           10,
		ProductName:     "Widget",
		PointOfSaleName: "StoreA",
	}
	if row != want {
		t.Errorf("ParseRow() = %+v, want %+v", row, want)
	}
}

func TestParseRow_Errors(t *testing.T) {
	tests := []struct {
		name    string
		row     RawRow
		wantErr error
	}{
		{"bad date", RawRow{"StoreA", "Widget", "yesterday", "10"}, ErrInvalidDate},
		{"impossible date", RawRow{"StoreA", "Widget", "2024-02-30", "10"}, ErrInvalidDate},
		{"overflow", RawRow{"StoreA", "Widget", "2024-01-01", "99999999999999999999"}, ErrStockOverflow},
		{"non-ascii digits", RawRow{"StoreA", "Widget", "2024-01-01", "١٢"}, ErrNonNumericStock},
		{"shape first", RawRow{"StoreA", "Widget"}, ErrWrongFieldCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(tt.row)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseRow() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	jan5 := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2024-01-05", jan5, true},
		{" 2024-01-05 ", jan5, true},
		{"2024/01/05", jan5, true},
		{"01/05/2024", jan5, true},
		{"20240105", jan5, true},
		{"Jan 5, 2024", jan5, true},
		{"1/5/24", jan5, true},
		{"1/5/99", time.Date(1999, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"05-Jan", time.Time{}, false},
		{"2024-13-01", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMalformedRowError(t *testing.T) {
	err := &MalformedRowError{
		Chunk:    2,
		Position: 7,
		Line:     1009,
		Fields:   []string{"StoreA", "Widget", "2024-01-01"},
		Err:      ValidateRow(RawRow{"StoreA", "Widget", "2024-01-01"}),
	}

	msg := err.Error()
	for _, want := range []string{"line 1009", "chunk 2", "row 7", "wrong field count", "StoreA;Widget;2024-01-01"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, ErrWrongFieldCount) {
		t.Error("MalformedRowError should unwrap to the validation reason")
	}
}

func TestFieldName(t *testing.T) {
	tests := map[int]string{
		FieldPointOfSale: "point of sale",
		FieldProduct:     "product",
		FieldDate:        "date",
		FieldStock:       "stock",
		6:                "field 7",
	}
	for pos, want := range tests {
		if got := FieldName(pos); got != want {
			t.Errorf("FieldName(%d) = %q, want %q", pos, got, want)
		}
	}
}
