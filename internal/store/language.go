package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"appointment-api/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so language
// resolution can run standalone or inside an appointment transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) ListLanguages(ctx context.Context, userID string) ([]model.Language, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name FROM languages
		 WHERE user_id = $1
		 ORDER BY name DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetOrCreateLanguage returns the owner's language with that name, creating
// it if absent. The UNIQUE(user_id, name) constraint makes this safe under
// concurrent calls: the insert either wins or hits the conflict, and the
// follow-up select then sees the winner's row.
func (s *Store) GetOrCreateLanguage(ctx context.Context, userID, name string) (*model.Language, error) {
	return getOrCreateLanguage(ctx, s.pool, userID, name)
}

func getOrCreateLanguage(ctx context.Context, db querier, userID, name string) (*model.Language, error) {
	l := &model.Language{UserID: userID, Name: name}
	err := db.QueryRow(ctx,
		`INSERT INTO languages (user_id, name) VALUES ($1,$2)
		 ON CONFLICT (user_id, name) DO NOTHING
		 RETURNING id`, userID, name,
	).Scan(&l.ID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// conflict: the row already existed, fetch it
	err = db.QueryRow(ctx,
		`SELECT id FROM languages WHERE user_id = $1 AND name = $2`, userID, name,
	).Scan(&l.ID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) UpdateLanguage(ctx context.Context, userID string, id int64, name string) (*model.Language, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE languages SET name = $1 WHERE id = $2 AND user_id = $3`,
		name, id, userID,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return &model.Language{ID: id, UserID: userID, Name: name}, nil
}

// DeleteLanguage removes the language and, via ON DELETE CASCADE, its
// association rows. Appointments themselves are untouched.
func (s *Store) DeleteLanguage(ctx context.Context, userID string, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM languages WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
