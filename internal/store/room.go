package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventops/portal/internal/core"
)

const roomColumns = `id, name, building, capacity, qr_code, created_at, updated_at`

const replaceLockRooms = "rooms:replace"

// RoomStore is the Postgres implementation of core.RoomStore.
type RoomStore struct {
	pool *pgxpool.Pool
}

// NewRoomStore constructs a RoomStore backed by the given pool.
func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

var _ core.RoomStore = (*RoomStore)(nil)

func (s *RoomStore) List(ctx context.Context) ([]core.Room, error) {
	q := fmt.Sprintf(`SELECT %s FROM rooms ORDER BY building, name`, roomColumns)

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store.RoomStore.List: %w", err)
	}
	defer rows.Close()

	return collectRooms(rows, "store.RoomStore.List")
}

func (s *RoomStore) ListPage(ctx context.Context, limit int) ([]core.Room, error) {
	q := fmt.Sprintf(`SELECT %s FROM rooms ORDER BY building, name LIMIT $1`, roomColumns)

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store.RoomStore.ListPage: %w", err)
	}
	defer rows.Close()

	return collectRooms(rows, "store.RoomStore.ListPage")
}

func (s *RoomStore) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`DELETE FROM rooms WHERE id = $1`, id)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("store.RoomStore.DeleteBatch: %w", err)
		}
	}
	return nil
}

func (s *RoomStore) InsertBatch(ctx context.Context, rooms []core.Room) error {
	if len(rooms) == 0 {
		return nil
	}

	const q = `
		INSERT INTO rooms (name, building, capacity, qr_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, r := range rooms {
		batch.Queue(q, r.Name, r.Building, r.Capacity, r.QRCode, r.CreatedAt, r.UpdatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range rooms {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("store.RoomStore.InsertBatch: %w", err)
		}
	}
	return nil
}

func (s *RoomStore) WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return withAdvisoryLock(ctx, s.pool, replaceLockRooms, fn)
}

func collectRooms(rows pgx.Rows, op string) ([]core.Room, error) {
	var rooms []core.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return rooms, nil
}

func scanRoom(sc scanner) (core.Room, error) {
	var (
		r  core.Room
		id pgtype.UUID
	)

	err := sc.Scan(&id, &r.Name, &r.Building, &r.Capacity, &r.QRCode, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Room{}, core.ErrNotFound
		}
		return core.Room{}, err
	}

	r.ID = uuid.UUID(id.Bytes)
	return r, nil
}
