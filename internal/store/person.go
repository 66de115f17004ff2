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

const personColumns = `id, full_name, email, phone, role, subteam, school, grade, company, created_at, updated_at`

// replaceLockPeople keys the advisory lock for roster replacement.
const replaceLockPeople = "people:replace"

// PersonStore is the Postgres implementation of core.PersonStore.
type PersonStore struct {
	pool *pgxpool.Pool
}

// NewPersonStore constructs a PersonStore backed by the given pool.
func NewPersonStore(pool *pgxpool.Pool) *PersonStore {
	return &PersonStore{pool: pool}
}

var _ core.PersonStore = (*PersonStore)(nil)

// List returns the full roster ordered by email.
func (s *PersonStore) List(ctx context.Context) ([]core.Person, error) {
	q := fmt.Sprintf(`SELECT %s FROM people ORDER BY email`, personColumns)

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store.PersonStore.List: %w", err)
	}
	defer rows.Close()

	var people []core.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("store.PersonStore.List: scan: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.PersonStore.List: rows: %w", err)
	}
	return people, nil
}

// ListPage returns up to limit records in stable email order.
func (s *PersonStore) ListPage(ctx context.Context, limit int) ([]core.Person, error) {
	q := fmt.Sprintf(`SELECT %s FROM people ORDER BY email LIMIT $1`, personColumns)

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("store.PersonStore.ListPage: %w", err)
	}
	defer rows.Close()

	var people []core.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("store.PersonStore.ListPage: scan: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.PersonStore.ListPage: rows: %w", err)
	}
	return people, nil
}

// DeleteBatch removes the given records as one batched round trip.
func (s *PersonStore) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(`DELETE FROM people WHERE id = $1`, id)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range ids {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("store.PersonStore.DeleteBatch: %w", err)
		}
	}
	return nil
}

// InsertBatch inserts the given records as one batched round trip.
// Timestamps are the caller's stamped values; IDs are store-generated.
func (s *PersonStore) InsertBatch(ctx context.Context, people []core.Person) error {
	if len(people) == 0 {
		return nil
	}

	const q = `
		INSERT INTO people (full_name, email, phone, role, subteam, school, grade, company, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, p := range people {
		batch.Queue(q, p.FullName, p.Email, p.Phone, string(p.Role),
			p.Subteam, p.School, p.Grade, p.Company, p.CreatedAt, p.UpdatedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range people {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("store.PersonStore.InsertBatch: %w", err)
		}
	}
	return nil
}

// FindByEmail returns the record with the given email.
// Returns core.ErrNotFound if no such record exists.
func (s *PersonStore) FindByEmail(ctx context.Context, email string) (core.Person, error) {
	q := fmt.Sprintf(`SELECT %s FROM people WHERE email = @email`, personColumns)

	row := s.pool.QueryRow(ctx, q, pgx.NamedArgs{"email": email})
	p, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Person{}, core.ErrNotFound
		}
		return core.Person{}, fmt.Errorf("store.PersonStore.FindByEmail: %w", err)
	}
	return p, nil
}

// Insert persists one record and returns it with its generated ID.
func (s *PersonStore) Insert(ctx context.Context, p core.Person) (core.Person, error) {
	q := fmt.Sprintf(`
		INSERT INTO people (full_name, email, phone, role, subteam, school, grade, company, created_at, updated_at)
		VALUES (@full_name, @email, @phone, @role, @subteam, @school, @grade, @company, @created_at, @updated_at)
		RETURNING %s`, personColumns)

	args := pgx.NamedArgs{
		"full_name":  p.FullName,
		"email":      p.Email,
		"phone":      p.Phone,
		"role":       string(p.Role),
		"subteam":    p.Subteam,
		"school":     p.School,
		"grade":      p.Grade,
		"company":    p.Company,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}

	row := s.pool.QueryRow(ctx, q, args)
	created, err := scanPerson(row)
	if err != nil {
		return core.Person{}, fmt.Errorf("store.PersonStore.Insert: %w", err)
	}
	return created, nil
}

// WithReplaceLock serializes roster replacements behind a store-native
// advisory lock.
func (s *PersonStore) WithReplaceLock(ctx context.Context, fn func(ctx context.Context) error) error {
	return withAdvisoryLock(ctx, s.pool, replaceLockPeople, fn)
}

// scanPerson maps one database row into a core.Person.
func scanPerson(sc scanner) (core.Person, error) {
	var (
		p  core.Person
		id pgtype.UUID
	)

	err := sc.Scan(&id, &p.FullName, &p.Email, &p.Phone, (*string)(&p.Role),
		&p.Subteam, &p.School, &p.Grade, &p.Company, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Person{}, core.ErrNotFound
		}
		return core.Person{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	return p, nil
}
