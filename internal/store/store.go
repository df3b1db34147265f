package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound covers both "no such row" and "row owned by someone else" —
// callers must not be able to tell the two apart.
var ErrNotFound = errors.New("not found")

// ErrDuplicate reports a unique-constraint violation, e.g. renaming a
// language to a name the owner already has.
var ErrDuplicate = errors.New("already exists")

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
