package core

// roster.go is the write side of the pipeline: full-roster replacement and
// single-record upsert against the record store.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultBatchSize bounds every store batch (delete page, insert chunk).
// It exists to respect the store's per-batch operation limit, not as a
// tuning knob.
const DefaultBatchSize = 100

// RosterService coordinates roster writes. It holds no state across calls;
// every invocation is a fresh pipeline run.
type RosterService struct {
	people    PersonStore
	batchSize int
	now       func() time.Time
}

// NewRosterService constructs a RosterService. batchSize <= 0 falls back
// to DefaultBatchSize; now == nil falls back to time.Now. Tests inject a
// fixed clock through now.
func NewRosterService(people PersonStore, batchSize int, now func() time.Time) *RosterService {
	if people == nil {
		panic("core: NewRosterService requires a PersonStore")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if now == nil {
		now = time.Now
	}
	return &RosterService{people: people, batchSize: batchSize, now: now}
}

// ReplaceAll replaces the entire persisted roster with people.
//
// The replacement holds the store's single-writer lock for its duration,
// then deletes the existing collection in pages and inserts the new
// records in chunks, each page/chunk one store batch. Batches commit
// independently: a failure mid-way leaves the collection in a mixed state
// the caller must treat as indeterminate. Re-running with the same input
// is safe and converges on the input set.
//
// Readers between the delete and insert phases observe an empty
// collection; that window is an accepted trade-off of the batched design.
func (s *RosterService) ReplaceAll(ctx context.Context, people []Person) error {
	err := s.people.WithReplaceLock(ctx, func(ctx context.Context) error {
		if err := deleteAll(ctx, s.batchSize, s.people.ListPage, personIDs, s.people.DeleteBatch); err != nil {
			return err
		}

		stamp := s.now().UTC()
		for i := range people {
			people[i].CreatedAt = stamp
			people[i].UpdatedAt = stamp
		}
		return insertAll(ctx, s.batchSize, people, s.people.InsertBatch)
	})
	if err != nil {
		return fmt.Errorf("core.RosterService.ReplaceAll: %w", err)
	}
	return nil
}

// Upsert inserts p if no record with its email exists, or returns the
// existing record untouched. This is create-if-not-exists, not a merge:
// when the key is taken the submission is discarded and the stored record
// is authoritative.
func (s *RosterService) Upsert(ctx context.Context, p Person) (Person, bool, error) {
	existing, err := s.people.FindByEmail(ctx, p.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Person{}, false, fmt.Errorf("core.RosterService.Upsert: %w", err)
	}

	stamp := s.now().UTC()
	p.CreatedAt = stamp
	p.UpdatedAt = stamp
	created, err := s.people.Insert(ctx, p)
	if err != nil {
		return Person{}, false, fmt.Errorf("core.RosterService.Upsert: %w", err)
	}
	return created, true, nil
}

// List returns the current roster.
func (s *RosterService) List(ctx context.Context) ([]Person, error) {
	people, err := s.people.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("core.RosterService.List: %w", err)
	}
	if people == nil {
		people = []Person{}
	}
	return people, nil
}

// RoomService coordinates room-assignment writes. Rooms share the generic
// replacement machinery with the roster; only the schema and store differ.
type RoomService struct {
	rooms     RoomStore
	batchSize int
	now       func() time.Time
}

// NewRoomService constructs a RoomService; see NewRosterService for the
// defaulting rules.
func NewRoomService(rooms RoomStore, batchSize int, now func() time.Time) *RoomService {
	if rooms == nil {
		panic("core: NewRoomService requires a RoomStore")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, batchSize: batchSize, now: now}
}

// ReplaceAll replaces the room collection; same semantics as the roster
// replacement.
func (s *RoomService) ReplaceAll(ctx context.Context, rooms []Room) error {
	err := s.rooms.WithReplaceLock(ctx, func(ctx context.Context) error {
		if err := deleteAll(ctx, s.batchSize, s.rooms.ListPage, roomIDs, s.rooms.DeleteBatch); err != nil {
			return err
		}

		stamp := s.now().UTC()
		for i := range rooms {
			rooms[i].CreatedAt = stamp
			rooms[i].UpdatedAt = stamp
		}
		return insertAll(ctx, s.batchSize, rooms, s.rooms.InsertBatch)
	})
	if err != nil {
		return fmt.Errorf("core.RoomService.ReplaceAll: %w", err)
	}
	return nil
}

// List returns all rooms.
func (s *RoomService) List(ctx context.Context) ([]Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("core.RoomService.List: %w", err)
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return rooms, nil
}

// deleteAll drains the collection: fetch up to batchSize records, delete
// the page as one batch, stop when a fetch comes back empty. Paging keeps
// memory bounded and each delete within the store's batch limit.
func deleteAll[T, ID any](
	ctx context.Context,
	batchSize int,
	listPage func(ctx context.Context, limit int) ([]T, error),
	ids func([]T) []ID,
	deleteBatch func(ctx context.Context, ids []ID) error,
) error {
	for {
		page, err := listPage(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("delete phase: list page: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		if err := deleteBatch(ctx, ids(page)); err != nil {
			return fmt.Errorf("delete phase: %w", err)
		}
	}
}

// insertAll writes items in chunks of batchSize, committing the final
// partial chunk as its own batch.
func insertAll[T any](
	ctx context.Context,
	batchSize int,
	items []T,
	insertBatch func(ctx context.Context, items []T) error,
) error {
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := insertBatch(ctx, items[start:end]); err != nil {
			return fmt.Errorf("insert phase: %w", err)
		}
	}
	return nil
}

func personIDs(people []Person) []uuid.UUID {
	out := make([]uuid.UUID, len(people))
	for i, p := range people {
		out[i] = p.ID
	}
	return out
}

func roomIDs(rooms []Room) []uuid.UUID {
	out := make([]uuid.UUID, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}
