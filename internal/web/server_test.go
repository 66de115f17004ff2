package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventops/portal/internal/config"
	"github.com/eventops/portal/internal/core"
	"github.com/eventops/portal/internal/session"
)

// memPersonStore is a PersonStore for handler tests. Lock acquisitions are
// counted so tests can assert that rejected requests never reach the store.
type memPersonStore struct {
	people []core.Person
	locks  int
}

func (m *memPersonStore) List(ctx context.Context) ([]core.Person, error) {
	out := make([]core.Person, len(m.people))
	copy(out, m.people)
	return out, nil
}

func (m *memPersonStore) ListPage(ctx context.Context, limit int) ([]core.Person, error) {
	if limit > len(m.people) {
		limit = len(m.people)
	}
	out := make([]core.Person, limit)
	copy(out, m.people[:limit])
	return out, nil
}

func (m *memPersonStore) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.people[:0]
	for _, p := range m.people {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	m.people = kept
	return nil
}

func (m *memPersonStore) InsertBatch(ctx context.Context, people []core.Person) error {
	for _, p := range people {
		p.ID = uuid.New()
		m.people = append(m.people, p)
	}
	return nil
}

func (m *memPersonStore) FindByEmail(ctx context.Context, email string) (core.Person, error) {
	for _, p := range m.people {
		if p.Email == email {
			return p, nil
		}
	}
	return core.Person{}, core.ErrNotFound
}

func (m *memPersonStore) Insert(ctx context.Context, p core.Person) (core.Person, error) {
	p.ID = uuid.New()
	m.people = append(m.people, p)
	return p, nil
}

func (m *memPersonStore) WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error {
	m.locks++
	return fn(ctx)
}

type memRoomStore struct {
	rooms []core.Room
	locks int
}

func (m *memRoomStore) List(ctx context.Context) ([]core.Room, error) {
	out := make([]core.Room, len(m.rooms))
	copy(out, m.rooms)
	return out, nil
}

func (m *memRoomStore) ListPage(ctx context.Context, limit int) ([]core.Room, error) {
	if limit > len(m.rooms) {
		limit = len(m.rooms)
	}
	out := make([]core.Room, limit)
	copy(out, m.rooms[:limit])
	return out, nil
}

func (m *memRoomStore) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.rooms[:0]
	for _, r := range m.rooms {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	m.rooms = kept
	return nil
}

func (m *memRoomStore) InsertBatch(ctx context.Context, rooms []core.Room) error {
	for _, r := range rooms {
		r.ID = uuid.New()
		m.rooms = append(m.rooms, r)
	}
	return nil
}

func (m *memRoomStore) WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error {
	m.locks++
	return fn(ctx)
}

// fakeVerifier resolves tokens from a fixed map.
type fakeVerifier struct {
	principals map[string]session.Principal
	err        error
}

func (f *fakeVerifier) Resolve(ctx context.Context, token string) (session.Principal, error) {
	if f.err != nil {
		return session.Principal{}, f.err
	}
	p, ok := f.principals[token]
	if !ok {
		return session.Principal{}, session.ErrInvalidSession
	}
	return p, nil
}

const adminToken = "tok-admin"

type testEnv struct {
	server *Server
	people *memPersonStore
	rooms  *memRoomStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Upload.MaxFileSize = core.MaxFileSize
	cfg.Upload.BatchSize = 100
	cfg.Security.CORSOrigins = []string{"http://localhost:5173"}
	cfg.Rate.Enabled = false

	people := &memPersonStore{}
	rooms := &memRoomStore{}
	verifier := &fakeVerifier{principals: map[string]session.Principal{
		adminToken: {UserID: uuid.New(), Email: "admin@x.com", Role: core.RoleAdmin, AccessStatus: session.AccessActive},
		"tok-staff": {UserID: uuid.New(), Email: "staff@x.com", Role: core.RoleStaff, AccessStatus: session.AccessActive},
		"tok-suspended": {UserID: uuid.New(), Email: "old@x.com", Role: core.RoleAdmin, AccessStatus: "suspended"},
	}}

	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	srv := NewServer(cfg,
		core.NewRosterService(people, cfg.Upload.BatchSize, clock),
		core.NewRoomService(rooms, cfg.Upload.BatchSize, clock),
		verifier,
	)
	return &testEnv{server: srv, people: people, rooms: rooms}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	return req
}

// csvUpload builds a multipart POST carrying content as the "file" part.
func csvUpload(t *testing.T, path, fileName, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Errors
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/roster", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH_MISSING_SESSION")
}

func TestAPIRejectsUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withSession(httptest.NewRequest(http.MethodGet, "/api/roster", nil), "tok-bogus"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTH_INVALID_SESSION")
}

func TestAPIRejectsNonAdmin(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"tok-staff", "tok-suspended"} {
		rec := env.do(withSession(httptest.NewRequest(http.MethodGet, "/api/roster", nil), token))

		assert.Equal(t, http.StatusForbidden, rec.Code, "token %s", token)
		assert.Contains(t, rec.Body.String(), "AUTH_FORBIDDEN")
	}
}

func TestAuthRunsBeforePipeline(t *testing.T) {
	env := newTestEnv(t)

	req := csvUpload(t, "/api/roster", "roster.csv",
		"fullName,email,phone,role,subteam,school,grade,company\nJane Doe,jane@x.com,5551234567,attendee,,,,\n")
	rec := env.do(req) // no cookie

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, env.people.locks, "rejected request must not touch the store")
}

func TestRosterUpload_ReplacesRoster(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.people.InsertBatch(context.Background(), []core.Person{
		{FullName: "Old Record", Email: "old@x.com", Phone: "5550000000", Role: core.RoleAttendee},
	}))

	csv := "fullName,email,phone,role,subteam,school,grade,company\n" +
		"Jane Doe,jane@x.com,5551234567,staff,operations,,,Acme\n" +
		"Bob Roe,bob@x.com,5557654321,attendee,,Springfield High,junior,\n"
	rec := env.do(withSession(csvUpload(t, "/api/roster", "roster.csv", csv), adminToken))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Count   int `json:"count"`
		Records []struct {
			Email string `json:"email"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Records, 2)

	assert.Equal(t, 1, env.people.locks)
	require.Len(t, env.people.people, 2)
	emails := []string{env.people.people[0].Email, env.people.people[1].Email}
	assert.NotContains(t, emails, "old@x.com", "previous roster must be gone")
}

func TestRosterUpload_RejectsWholeSubmission(t *testing.T) {
	env := newTestEnv(t)

	// Row 2 is valid; the bad row 1 must still block everything.
	csv := "fullName,email,phone,role,subteam,school,grade,company\n" +
		"Jane Doe,jane@x.com,5551234567,staff,,,,\n" +
		"Bob Roe,bob@x.com,5557654321,attendee,,,,\n"
	rec := env.do(withSession(csvUpload(t, "/api/roster", "roster.csv", csv), adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	require.Len(t, errs, 1)
	assert.Equal(t, "errors for row 1: Subteam is required", errs[0])
	assert.Zero(t, env.people.locks, "nothing may be written on validation failure")
	assert.Empty(t, env.people.people)
}

func TestRosterUpload_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withSession(csvUpload(t, "/api/roster", "roster.xlsx", "whatever"), adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decodeErrors(t, rec)
	require.Len(t, errs, 1)
	assert.Equal(t, core.ErrUnsupportedExtension.Error(), errs[0])
}

func TestRosterUpload_MissingFilePart(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("notes", "no file here"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/roster", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := env.do(withSession(req, adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{core.ErrMissingFile.Error()}, decodeErrors(t, rec))
}

func TestRoster_UnsupportedContentType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/roster", strings.NewReader("fullName,email\n"))
	req.Header.Set("Content-Type", "text/csv")

	rec := env.do(withSession(req, adminToken))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRosterEntry_CreateThenStable(t *testing.T) {
	env := newTestEnv(t)

	entry := `{"fullName":"Jane Doe","email":"jane@x.com","phone":"5551234567","role":"staff","subteam":"operations","company":"Acme"}`
	req := httptest.NewRequest(http.MethodPost, "/api/roster", strings.NewReader(entry))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(withSession(req, adminToken))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created personResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "jane@x.com", created.Email)
	assert.NotEmpty(t, created.ID)

	// Resubmitting the same email returns the stored record untouched.
	changed := `{"fullName":"Janet Doe","email":"jane@x.com","phone":"5559999999","role":"attendee"}`
	req = httptest.NewRequest(http.MethodPost, "/api/roster", strings.NewReader(changed))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(withSession(req, adminToken))

	require.Equal(t, http.StatusOK, rec.Code)
	var again personResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, created, again)
	assert.Len(t, env.people.people, 1)
}

func TestRosterEntry_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	entry := `{"fullName":"Jane Doe","email":"not-an-email","phone":"555","role":"staff","subteam":"operations"}`
	req := httptest.NewRequest(http.MethodPost, "/api/roster", strings.NewReader(entry))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(withSession(req, adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Invalid email address", "Invalid phone number"}, decodeErrors(t, rec))
	assert.Empty(t, env.people.people)
}

func TestRosterEntry_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/roster", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(withSession(req, adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRosterTemplate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withSession(httptest.NewRequest(http.MethodGet, "/api/roster/template", nil), adminToken))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster-template.csv")
	assert.Equal(t, "fullName,email,phone,role,subteam,school,grade,company\n", rec.Body.String())
}

func TestRoomsUpload_ReplacesRooms(t *testing.T) {
	env := newTestEnv(t)

	csv := "name,building,capacity,qrCode\n" +
		"Auditorium,Main Hall,300,QR-AUD-1\n" +
		"Lab 2,Annex,24,\n"
	rec := env.do(withSession(csvUpload(t, "/api/rooms", "rooms.csv", csv), adminToken))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, env.rooms.locks)
	require.Len(t, env.rooms.rooms, 2)
	assert.Equal(t, 300, env.rooms.rooms[0].Capacity)
}

func TestRoomsUpload_RejectsBadCapacity(t *testing.T) {
	env := newTestEnv(t)

	csv := "name,building,capacity,qrCode\nAuditorium,Main Hall,lots,\n"
	rec := env.do(withSession(csvUpload(t, "/api/rooms", "rooms.csv", csv), adminToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"errors for row 1: Capacity must be a number"}, decodeErrors(t, rec))
	assert.Empty(t, env.rooms.rooms)
}

func TestRoomTemplate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(withSession(httptest.NewRequest(http.MethodGet, "/api/rooms/template", nil), adminToken))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name,building,capacity,qrCode\n", rec.Body.String())
}

func TestSecurityHeadersPresent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
