package web

import (
	"net/http"

	"github.com/eventops/portal/internal/logging"
	"github.com/eventops/portal/internal/schema"
)

// handleRoomsUpload handles POST /api/rooms: bulk replacement of the room
// assignments from a spreadsheet. Rooms have no single-entry path.
func (s *Server) handleRoomsUpload(w http.ResponseWriter, r *http.Request) {
	accepted, ok := decodeAndValidateTable(s, w, r, schema.Room)
	if !ok {
		return
	}

	if err := s.rooms.ReplaceAll(r.Context(), accepted); err != nil {
		logging.FromContext(r.Context()).Error("room replacement failed", "error", err)
		writeError(w, http.StatusInternalServerError, "room replacement failed; the collection may be partially replaced")
		return
	}

	rooms, err := s.rooms.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("room list after replace failed", "error", err)
		writeError(w, http.StatusInternalServerError, "rooms replaced but could not be listed")
		return
	}

	logging.FromContext(r.Context()).Info("rooms replaced", "count", len(rooms))
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(rooms),
		"records": toRoomResponses(rooms),
	})
}

// handleListRooms handles GET /api/rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("room list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list rooms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(rooms),
		"records": toRoomResponses(rooms),
	})
}

// handleRoomTemplate handles GET /api/rooms/template.
func (s *Server) handleRoomTemplate(w http.ResponseWriter, r *http.Request) {
	writeTemplate(w, "rooms-template.csv", schema.Room.Headers())
}
