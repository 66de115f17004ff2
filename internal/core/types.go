// Package core provides the business logic for the event-operations portal:
// decoding uploaded spreadsheets, validating rows against a field schema,
// and replacing or upserting roster records in the store.
// This package has no HTTP dependencies and can be driven by any frontend.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by store implementations when a lookup matches
// no record. Callers use errors.Is to distinguish it from store failures.
var ErrNotFound = errors.New("not found")

// Role is the access role assigned to a person.
type Role string

const (
	RoleAttendee Role = "attendee"
	RoleStaff    Role = "staff"
	// RoleAdmin exists in the store but is excluded from bulk import and
	// direct entry; admins are provisioned out of band.
	RoleAdmin Role = "admin"
)

// Subteams a staff member can belong to.
var Subteams = []string{"operations", "logistics", "registration", "sponsorship", "technology"}

// Grades an attendee can report.
var Grades = []string{"freshman", "sophomore", "junior", "senior"}

// Person is a roster record. Email is the natural key: upserts are
// idempotent on it and the store enforces uniqueness.
type Person struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Subteam   string    `json:"subteam,omitempty"` // staff only, required for staff
	School    string    `json:"school,omitempty"`  // attendee only
	Grade     string    `json:"grade,omitempty"`   // attendee only
	Company   string    `json:"company,omitempty"` // staff only
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Room is a physical room with its QR assignment. Rooms are administered
// by bulk import only.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Building  string    `json:"building"`
	Capacity  int       `json:"capacity"`
	QRCode    string    `json:"qrCode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PersonStore is the record-store boundary for Person records.
// Implementations must honor the store's per-batch operation limits:
// DeleteBatch and InsertBatch are each committed as one batch.
type PersonStore interface {
	// List returns the full roster ordered by email.
	List(ctx context.Context) ([]Person, error)

	// ListPage returns up to limit records in stable order.
	ListPage(ctx context.Context, limit int) ([]Person, error)

	// DeleteBatch removes the given records as one batch.
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error

	// InsertBatch inserts the given records as one batch.
	InsertBatch(ctx context.Context, people []Person) error

	// FindByEmail returns the record with the given email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (Person, error)

	// Insert persists one record and returns it with its store identity.
	Insert(ctx context.Context, p Person) (Person, error)

	// WithReplaceLock runs fn while holding the single-writer replacement
	// lock for the people collection. The lock is released on all exit
	// paths, including when fn returns an error.
	WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error
}

// RoomStore is the record-store boundary for Room records.
type RoomStore interface {
	List(ctx context.Context) ([]Room, error)
	ListPage(ctx context.Context, limit int) ([]Room, error)
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
	InsertBatch(ctx context.Context, rooms []Room) error
	WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error
}
