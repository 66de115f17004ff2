// Package session resolves a session cookie to the caller's identity.
// Only verification lives here: sign-in and cookie issuance belong to the
// managed auth collaborator and are outside this service.
package session

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

// CookieName is the session cookie the portal's frontend sets at sign-in.
const CookieName = "ops_session"

// AccessActive is the access_status value of an account in good standing.
const AccessActive = "active"

// ErrInvalidSession is returned when the token matches no live session.
var ErrInvalidSession = errors.New("invalid or expired session")

// Principal is the resolved caller identity attached to each request.
type Principal struct {
	UserID       uuid.UUID
	Email        string
	Role         core.Role
	AccessStatus string
}

// Admin reports whether the principal may invoke the admin surface.
func (p Principal) Admin() bool {
	return p.Role == core.RoleAdmin && p.AccessStatus == AccessActive
}

// Verifier resolves a raw cookie token to a Principal.
type Verifier interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// Store is the Postgres-backed Verifier.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ Verifier = (*Store)(nil)

// Resolve looks up a live session and returns the owning user's identity.
// Expired and unknown tokens both come back as ErrInvalidSession.
func (s *Store) Resolve(ctx context.Context, token string) (Principal, error) {
	const q = `
		SELECT u.id, u.email, u.role, u.access_status
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = @token AND s.expires_at > now()`

	var (
		p  Principal
		id pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, pgx.NamedArgs{"token": token}).
		Scan(&id, &p.Email, (*string)(&p.Role), &p.AccessStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrInvalidSession
		}
		return Principal{}, fmt.Errorf("session.Store.Resolve: %w", err)
	}

	p.UserID = uuid.UUID(id.Bytes)
	return p, nil
}
