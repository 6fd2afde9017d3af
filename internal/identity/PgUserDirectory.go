package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUserDirectory reads the identity provider's user table. Read-only: this
// core never writes identity data.
type PgUserDirectory struct {
	pool *pgxpool.Pool
}

func NewPgUserDirectory(pool *pgxpool.Pool) *PgUserDirectory {
	return &PgUserDirectory{pool: pool}
}

var _ Directory = (*PgUserDirectory)(nil)

func (d *PgUserDirectory) FindByID(ctx context.Context, id string) (*User, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("PgUserDirectory: nil pool")
	}
	var u User
	err := d.pool.QueryRow(ctx, `
		SELECT id::text, display_name, COALESCE(avatar_ref, ''), COALESCE(affiliation, '')
		FROM identity.app_user
		WHERE id = $1::uuid
	`, id).Scan(&u.ID, &u.DisplayName, &u.AvatarRef, &u.Affiliation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
