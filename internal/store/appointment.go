package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"appointment-api/internal/model"
)

// CreateAppointment inserts the appointment and reconciles its language set
// in one transaction. Language names are resolved get-or-create in input
// order; a failure anywhere rolls the whole thing back, including the
// appointment row itself.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment, languages []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (user_id, title, time_minutes, price, link, description)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id, created_at, updated_at`,
		a.UserID, a.Title, a.TimeMinutes, a.Price, a.Link, a.Description,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}

	if err := reconcileLanguages(ctx, tx, a.UserID, a.ID, languages); err != nil {
		return err
	}

	a.Languages, err = appointmentLanguages(ctx, tx, a.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetAppointment(ctx context.Context, userID string, id int64) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, time_minutes, price, link, description, created_at, updated_at
		 FROM appointments WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&a.ID, &a.UserID, &a.Title, &a.TimeMinutes, &a.Price, &a.Link,
		&a.Description, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// also the answer when the id exists under another owner
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Languages, err = appointmentLanguages(ctx, s.pool, a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAppointments returns the owner's appointments, most recently created
// first, with languages attached.
func (s *Store) ListAppointments(ctx context.Context, userID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, time_minutes, price, link, description, created_at, updated_at
		 FROM appointments
		 WHERE user_id = $1
		 ORDER BY id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	var ids []int64
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.TimeMinutes, &a.Price,
			&a.Link, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	byAppointment, err := languagesByAppointment(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Languages = byAppointment[out[i].ID]
	}
	return out, nil
}

// UpdateAppointment locks the owner's row, lets apply rewrite its scalar
// fields, and writes the result back. When replaceLanguages is set the
// association set is cleared and rebuilt from languages — supplying an
// empty list therefore detaches everything; with replaceLanguages false
// the existing set is untouched. Reading under FOR UPDATE means two
// concurrent partial updates serialize instead of losing each other's
// fields. One transaction throughout.
func (s *Store) UpdateAppointment(ctx context.Context, userID string, id int64, apply func(*model.Appointment), languages []string, replaceLanguages bool) (*model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a := &model.Appointment{}
	err = tx.QueryRow(ctx,
		`SELECT id, user_id, title, time_minutes, price, link, description, created_at, updated_at
		 FROM appointments WHERE id = $1 AND user_id = $2
		 FOR UPDATE`, id, userID,
	).Scan(&a.ID, &a.UserID, &a.Title, &a.TimeMinutes, &a.Price, &a.Link,
		&a.Description, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	apply(a)

	err = tx.QueryRow(ctx,
		`UPDATE appointments
		 SET title=$1, time_minutes=$2, price=$3, link=$4, description=$5, updated_at=NOW()
		 WHERE id=$6
		 RETURNING updated_at`,
		a.Title, a.TimeMinutes, a.Price, a.Link, a.Description, a.ID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if replaceLanguages {
		if _, err := tx.Exec(ctx,
			`DELETE FROM appointment_languages WHERE appointment_id = $1`, a.ID); err != nil {
			return nil, err
		}
		if err := reconcileLanguages(ctx, tx, a.UserID, a.ID, languages); err != nil {
			return nil, err
		}
	}

	a.Languages, err = appointmentLanguages(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}

	return a, tx.Commit(ctx)
}

func (s *Store) DeleteAppointment(ctx context.Context, userID string, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// reconcileLanguages resolves each name against the owner's languages
// (get-or-create) and links it to the appointment. Duplicate names in the
// input collapse via the association's primary key.
func reconcileLanguages(ctx context.Context, db querier, userID string, appointmentID int64, names []string) error {
	for _, name := range names {
		lang, err := getOrCreateLanguage(ctx, db, userID, name)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx,
			`INSERT INTO appointment_languages (appointment_id, language_id)
			 VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			appointmentID, lang.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

func appointmentLanguages(ctx context.Context, db querier, appointmentID int64) ([]model.Language, error) {
	rows, err := db.Query(ctx,
		`SELECT l.id, l.user_id, l.name
		 FROM appointment_languages al
		 JOIN languages l ON l.id = al.language_id
		 WHERE al.appointment_id = $1
		 ORDER BY l.id`, appointmentID,
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

func languagesByAppointment(ctx context.Context, db querier, appointmentIDs []int64) (map[int64][]model.Language, error) {
	rows, err := db.Query(ctx,
		`SELECT al.appointment_id, l.id, l.user_id, l.name
		 FROM appointment_languages al
		 JOIN languages l ON l.id = al.language_id
		 WHERE al.appointment_id = ANY($1)
		 ORDER BY l.id`, appointmentIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]model.Language)
	for rows.Next() {
		var aid int64
		var l model.Language
		if err := rows.Scan(&aid, &l.ID, &l.UserID, &l.Name); err != nil {
			return nil, err
		}
		out[aid] = append(out[aid], l)
	}
	return out, rows.Err()
}
