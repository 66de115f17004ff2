package web

// handlers_common.go holds the response helpers shared across handlers.
//
// Validation failures always come back as an ordered list of strings under
// "errors" with status 400; success responses carry the record(s) with
// store timestamps rendered as RFC 3339 strings.

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/eventops/portal/internal/core"
)

// errorsResponse is the 400 body for any validation failure.
type errorsResponse struct {
	Errors []string `json:"errors"`
}

// personResponse is the serialized form of a roster record.
type personResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Subteam   string `json:"subteam,omitempty"`
	School    string `json:"school,omitempty"`
	Grade     string `json:"grade,omitempty"`
	Company   string `json:"company,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// roomResponse is the serialized form of a room record.
type roomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Building  string `json:"building"`
	Capacity  int    `json:"capacity"`
	QRCode    string `json:"qrCode,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toPersonResponse(p core.Person) personResponse {
	return personResponse{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      string(p.Role),
		Subteam:   p.Subteam,
		School:    p.School,
		Grade:     p.Grade,
		Company:   p.Company,
		CreatedAt: isoTime(p.CreatedAt),
		UpdatedAt: isoTime(p.UpdatedAt),
	}
}

func toPersonResponses(people []core.Person) []personResponse {
	out := make([]personResponse, len(people))
	for i, p := range people {
		out[i] = toPersonResponse(p)
	}
	return out
}

func toRoomResponse(r core.Room) roomResponse {
	return roomResponse{
		ID:        r.ID.String(),
		Name:      r.Name,
		Building:  r.Building,
		Capacity:  r.Capacity,
		QRCode:    r.QRCode,
		CreatedAt: isoTime(r.CreatedAt),
		UpdatedAt: isoTime(r.UpdatedAt),
	}
}

func toRoomResponses(rooms []core.Room) []roomResponse {
	out := make([]roomResponse, len(rooms))
	for i, r := range rooms {
		out[i] = toRoomResponse(r)
	}
	return out
}

// isoTime renders a store timestamp as an ISO-8601 (RFC 3339) string.
func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationErrors writes the ordered error list contract.
func writeValidationErrors(w http.ResponseWriter, msgs []string) {
	writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: msgs})
}
