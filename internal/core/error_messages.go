// Error codes reference
//
// Errors reaching a user are mapped to a message, a suggested action and a
// code that can be quoted to support staff.
//
// # Row Errors (ROW001-ROW099)
//
//	ROW001 - Wrong field count: a record does not have exactly four fields
//	ROW002 - Empty field: a record has an empty field
//	ROW003 - Bad stock count: the stock field is not a whole non-negative number
//	ROW004 - Invalid date: the date field is not a recognised date
//	ROW000 - Malformed row: any other row rejection
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Conflict: rows duplicate stock from an earlier load or repeat within the file
//	LOAD002 - Unresolved rows: staged names did not resolve to dimension rows
//	LOAD003 - Load not found
//	LOAD004 - Nothing to revert: the load has no stock facts left
//	LOAD005 - Busy: the concurrent load limit was reached
//	LOAD006 - Session state: the operation is not valid at this point of the load
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key              Patterns: "duplicate key"
//	DB002 - Unique constraint          Patterns: "unique constraint", "violates unique"
//	DB003 - Check constraint           Patterns: "violates check constraint"
//	DB004 - Connection refused         Patterns: "connection refused"
//	DB005 - Connection reset           Patterns: "connection reset"
//	DB006 - Timeout                    Patterns: "timeout"
//	DB007 - Deadlock                   Patterns: "deadlock"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large           Patterns: "file too large"
//	FILE002 - Invalid CSV              Patterns: "invalid csv"
//	FILE003 - Invalid delimiter        Patterns: "invalid delimiter"
//	FILE004 - No file                  Patterns: "no file provided"
//	FILE005 - File not found           Patterns: "no such file"
//
// # Request Errors (UPL001-UPL099)
//
//	UPL001 - Request cancelled
//	UPL002 - Request timeout
//
// # Auth Errors (AUTH001-AUTH099)
//
// Written directly by the web API-key middleware.
//
//	AUTH001 - Missing API key
//	AUTH002 - Invalid API key
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// technical error.
//
// Known sentinel errors are matched first with errors.Is. Remaining errors are
// matched case-insensitively against message patterns; the first match wins.

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// ErrLoadConflicted describes a load that was rejected because of conflicts.
// Sessions report conflicts through LoadResult; callers that need an error
// value for a conflicted result use this one.
var ErrLoadConflicted = errors.New("load conflicts with existing stock")

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked with errors.Is before any pattern.
var errorKinds = []errorKind{
	{ErrWrongFieldCount, UserMessage{
		Message: "A row does not have exactly four fields",
		Action:  "Each row needs point of sale, product, date and stock separated by the delimiter",
		Code:    "ROW001",
	}},
	{ErrEmptyField, UserMessage{
		Message: "A row has an empty field",
		Action:  "Fill in every field or remove the row",
		Code:    "ROW002",
	}},
	{ErrNonNumericStock, UserMessage{
		Message: "A stock count is not a whole number",
		Action:  "Use digits only in the stock column",
		Code:    "ROW003",
	}},
	{ErrStockOverflow, UserMessage{
		Message: "A stock count is too large",
		Action:  "Check the stock column for corrupted values",
		Code:    "ROW003",
	}},
	{ErrInvalidDate, UserMessage{
		Message: "A date could not be read",
		Action:  "Use YYYY-MM-DD for dates",
		Code:    "ROW004",
	}},
	{ErrLoadConflicted, UserMessage{
		Message: "The file contains stock that is already loaded or repeated",
		Action:  "Revert the conflicting loads or remove the duplicate rows, then load again",
		Code:    "LOAD001",
	}},
	{ErrUnresolvedRows, UserMessage{
		Message: "Some rows could not be matched to a product or point of sale",
		Action:  "Nothing was loaded. Please try again or contact support",
		Code:    "LOAD002",
	}},
	{ErrLoadNotFound, UserMessage{
		Message: "Load not found",
		Action:  "Check the load id against the list of loads",
		Code:    "LOAD003",
	}},
	{ErrNothingToRevert, UserMessage{
		Message: "This load has no stock to revert",
		Action:  "It may already have been reverted",
		Code:    "LOAD004",
	}},
	{ErrTooManySessions, UserMessage{
		Message: "Another load is in progress",
		Action:  "Please wait for it to finish and try again",
		Code:    "LOAD005",
	}},
	{ErrSessionState, UserMessage{
		Message: "The load is not in a state that allows this operation",
		Action:  "Start a new load",
		Code:    "LOAD006",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try loading a smaller file or raise LOAD_TIMEOUT",
		Code:    "UPL002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (lowercase) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "malformed row",
		msg: UserMessage{
			Message: "A row in the file is malformed",
			Action:  "Fix the reported line and load the file again",
			Code:    "ROW000",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check for stock already loaded for the same date",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates check constraint",
		msg: UserMessage{
			Message: "A value was rejected by the database",
			Action:  "Stock counts must not be negative",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try loading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file or raise LOAD_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not valid delimited text",
			Action:  "Check quoting around the reported line",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid delimiter",
		msg: UserMessage{
			Message: "The field delimiter is not usable",
			Action:  "Set LOAD_DELIMITER to a single character such as ;",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a stock file to load",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the file path",
			Code:    "FILE005",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Sentinel
// errors in the chain take precedence over message patterns. Unmatched errors
// map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
