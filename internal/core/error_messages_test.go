package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	malformed := func(reason error) error {
		return &MalformedRowError{
			Chunk:  1,
			Line:   12,
			Fields: []string{"Shop A", "Soap", "2024-01-05", "x"},
			Err:    &ValidationError{Field: FieldStock, Value: "x", Reason: reason},
		}
	}

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"wrong field count", malformed(fmt.Errorf("%w: expected 4, got 3", ErrWrongFieldCount)), "ROW001"},
		{"empty field", malformed(ErrEmptyField), "ROW002"},
		{"non-numeric stock", malformed(ErrNonNumericStock), "ROW003"},
		{"stock overflow", malformed(ErrStockOverflow), "ROW003"},
		{"invalid date", malformed(ErrInvalidDate), "ROW004"},
		{"other malformed row", &MalformedRowError{Err: errors.New("odd")}, "ROW000"},
		{"conflicted", fmt.Errorf("load 3: %w", ErrLoadConflicted), "LOAD001"},
		{"unresolved rows", fmt.Errorf("%w: staged 5, resolved 4", ErrUnresolvedRows), "LOAD002"},
		{"load not found", fmt.Errorf("%w: 99", ErrLoadNotFound), "LOAD003"},
		{"nothing to revert", fmt.Errorf("%w: load 2", ErrNothingToRevert), "LOAD004"},
		{"too many sessions", ErrTooManySessions, "LOAD005"},
		{"session state", fmt.Errorf("%w: cannot stage while promoted", ErrSessionState), "LOAD006"},
		{"cancelled", fmt.Errorf("read cancelled at line 4: %w", context.Canceled), "UPL001"},
		{"deadline", fmt.Errorf("stage chunk 2: %w", context.DeadlineExceeded), "UPL002"},
		{"duplicate key", errors.New(`ERROR: duplicate key value violates unique constraint "stock_natural_key"`), "DB001"},
		{"unique constraint", errors.New("ERROR: unique constraint violated"), "DB002"},
		{"check constraint", errors.New(`new row violates check constraint "stock_stock_check"`), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"timeout", errors.New("i/o timeout"), "DB006"},
		{"deadlock", errors.New("deadlock detected"), "DB007"},
		{"file too large", errors.New("file too large: 2GB exceeds limit"), "FILE001"},
		{"invalid csv", errors.New(`invalid csv at line 9: bare " in non-quoted field`), "FILE002"},
		{"invalid delimiter", errors.New(`invalid delimiter '\n'`), "FILE003"},
		{"no file", errors.New("no file provided"), "FILE004"},
		{"missing path", errors.New("open stock.csv: no such file or directory"), "FILE005"},
		{"case insensitive", errors.New("DUPLICATE KEY value"), "DB001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_SentinelBeatsRowText(t *testing.T) {
	// A product named "timeout" must not turn a row error into DB006.
	err := &MalformedRowError{
		Fields: []string{"Shop", "timeout", "2024-01-01", "1"},
		Err:    &ValidationError{Field: FieldDate, Value: "bad", Reason: ErrInvalidDate},
	}
	if got := MapError(err).Code; got != "ROW004" {
		t.Errorf("MapError() code = %q, want ROW004", got)
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrTooManySessions)

	expected := "Another load is in progress (Code: LOAD005). Please wait for it to finish and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrLoadNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("%w: 7", ErrLoadNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Load not found" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if userErr.User.Code != "LOAD003" {
			t.Errorf("Code = %q, want LOAD003", userErr.User.Code)
		}
		if !errors.Is(userErr, ErrLoadNotFound) {
			t.Error("Unwrap() should expose the original error chain")
		}
	})
}
