package web

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/eventops/portal/internal/core"
	"github.com/eventops/portal/internal/logging"
	"github.com/eventops/portal/internal/schema"
)

// handleRoster handles POST /api/roster. The body's content type selects
// the path: multipart/form-data runs the bulk decode → validate →
// replace-all pipeline; application/json runs single-record validate →
// upsert. Any validation error rejects the whole submission.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "missing or malformed Content-Type")
		return
	}

	switch {
	case mediaType == "multipart/form-data":
		s.handleRosterUpload(w, r)
	case mediaType == "application/json":
		s.handleRosterEntry(w, r)
	default:
		writeError(w, http.StatusUnsupportedMediaType, "expected multipart/form-data or application/json")
	}
}

// handleRosterUpload runs the bulk import pipeline and replaces the whole
// roster when every row validates. Nothing is written when any row fails.
func (s *Server) handleRosterUpload(w http.ResponseWriter, r *http.Request) {
	accepted, ok := decodeAndValidateTable(s, w, r, schema.Person)
	if !ok {
		return
	}

	if err := s.roster.ReplaceAll(r.Context(), accepted); err != nil {
		logging.FromContext(r.Context()).Error("roster replacement failed", "error", err)
		writeError(w, http.StatusInternalServerError, "roster replacement failed; the roster may be partially replaced")
		return
	}

	people, err := s.roster.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("roster list after replace failed", "error", err)
		writeError(w, http.StatusInternalServerError, "roster replaced but could not be listed")
		return
	}

	logging.FromContext(r.Context()).Info("roster replaced", "count", len(people))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(people),
		"records": toPersonResponses(people),
	})
}

// personRequest is the JSON body for direct single-record entry.
// Field names match the spreadsheet headers.
type personRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Subteam  string `json:"subteam"`
	School   string `json:"school"`
	Grade    string `json:"grade"`
	Company  string `json:"company"`
}

// handleRosterEntry validates one manually-entered record and upserts it
// by email. An existing record with the same email is returned unchanged.
func (s *Server) handleRosterEntry(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	msgs, person, ok := core.ValidateRecord(schema.Person, map[string]string{
		"fullName": req.FullName,
		"email":    req.Email,
		"phone":    req.Phone,
		"role":     req.Role,
		"subteam":  req.Subteam,
		"school":   req.School,
		"grade":    req.Grade,
		"company":  req.Company,
	})
	if !ok {
		writeValidationErrors(w, msgs)
		return
	}

	stored, created, err := s.roster.Upsert(r.Context(), person)
	if err != nil {
		logging.FromContext(r.Context()).Error("upsert failed", "email", person.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save record")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, toPersonResponse(stored))
}

// handleListRoster handles GET /api/roster.
func (s *Server) handleListRoster(w http.ResponseWriter, r *http.Request) {
	people, err := s.roster.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("roster list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list roster")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(people),
		"records": toPersonResponses(people),
	})
}

// handleRosterTemplate handles GET /api/roster/template: a CSV file with
// exactly the expected header row, ready to fill in.
func (s *Server) handleRosterTemplate(w http.ResponseWriter, r *http.Request) {
	writeTemplate(w, "roster-template.csv", schema.Person.Headers())
}

// decodeAndValidateTable runs the shared upload front half: multipart parsing,
// tabular decoding, and batch validation. On any failure it writes the
// 400 response and returns ok = false.
func decodeAndValidateTable[T any](s *Server, w http.ResponseWriter, r *http.Request, sc core.Schema[T]) ([]T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+1024*1024)

	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeValidationErrors(w, []string{core.ErrFileTooLarge.Error()})
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationErrors(w, []string{core.ErrMissingFile.Error()})
		return nil, false
	}
	defer file.Close()

	// The decoder re-checks size before parsing; reading here is bounded
	// by MaxBytesReader above.
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return nil, false
	}

	table, err := core.DecodeTable(header.Filename, data)
	if err != nil {
		writeValidationErrors(w, []string{err.Error()})
		return nil, false
	}

	result := core.ValidateTable(sc, table)
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = e.Error()
		}
		writeValidationErrors(w, msgs)
		return nil, false
	}

	return result.Accepted, true
}

// writeTemplate sends a one-row CSV with the schema's header names.
func writeTemplate(w http.ResponseWriter, fileName string, headers []string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write(headers)
	cw.Flush()
}
