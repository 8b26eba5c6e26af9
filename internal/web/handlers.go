package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/stockload/internal/logging"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 32 << 20

// handleIndex renders the load list page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	loads, err := s.service.ListLoads(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := LoadsPage(loads).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render loads page", "error", err)
	}
}

// handleHealth reports database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListLoads returns every load that still owns stock facts.
func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	loads, err := s.service.ListLoads(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, loads)
}

// handleGetLoad returns a single load record.
func (s *Server) handleGetLoad(w http.ResponseWriter, r *http.Request) {
	loadID, ok := s.loadIDParam(w, r)
	if !ok {
		return
	}

	load, err := s.service.GetLoad(r.Context(), loadID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, load)
}

// handleRevert deletes every stock fact of a load.
func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	loadID, ok := s.loadIDParam(w, r)
	if !ok {
		return
	}

	result, err := s.service.Revert(r.Context(), loadID)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateLoad runs the load pipeline on an uploaded file. The upload's
// file name is recorded as the load's source name.
//
// Responses:
//   - 201 with the LoadResult when the batch was promoted
//   - 409 with the LoadResult when the batch conflicted
//   - an ErrorResponse for malformed rows and failures
func (s *Server) handleCreateLoad(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Load.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, tooLarge.Limit)
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := s.service.LoadFile(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusCreated
	if result.Conflicted() {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

// loadIDParam parses the {loadID} URL parameter, writing a 400 on failure.
func (s *Server) loadIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "loadID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid load id",
			Message: "invalid load id",
			Action:  "Use the numeric id shown in the load list",
			Code:    "LOAD003",
			Detail:  raw,
		})
		return 0, false
	}
	return id, true
}
