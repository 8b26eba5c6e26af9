package web

// Errors are logged with their technical detail and the request id, then
// returned as a catalogue message (core.MapError) in JSON for /api routes
// and plain text elsewhere.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/stockload/internal/core"
	"github.com/JonMunkholm/stockload/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// errFileTooLarge is reported when the upload exceeds LOAD_MAX_FILE_SIZE.
var errFileTooLarge = errors.New("file too large")

// statusFor picks the HTTP status for an error from the load pipeline.
func statusFor(err error) int {
	var rowErr *core.MalformedRowError
	switch {
	case errors.As(err, &rowErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrLoadNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNothingToRevert), errors.Is(err, core.ErrLoadConflicted):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case core.MapError(err).Code == "FILE002":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
// Row and file errors carry their technical detail (line number, offending
// record) since the user needs it to fix the file.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if !wantsJSON(r) {
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if strings.HasPrefix(userMsg.Code, "ROW") || strings.HasPrefix(userMsg.Code, "FILE") {
		resp.Detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
