package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"appointment-api/internal/model"
	"appointment-api/internal/store"
)

func setup(t *testing.T) (*store.Store, *pgxpool.Pool) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		t.Fatalf("db config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)

	if migration, err := os.ReadFile("../../db/migrations/001_init.sql"); err == nil {
		if _, err := pool.Exec(context.Background(), string(migration)); err != nil {
			t.Fatalf("migration: %v", err)
		}
	}
	return store.New(pool), pool
}

func createUser(t *testing.T, st *store.Store) string {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8]),
		PasswordHash: "x",
		Name:         "Test User",
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func createAppointment(t *testing.T, st *store.Store, userID string, languages ...string) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		UserID:      userID,
		Title:       "Sample Appointment Title",
		TimeMinutes: 25,
		Price:       decimal.RequireFromString("5.25"),
		Link:        "https://example.com/appointment.pdf",
		Description: "Sample Appointment Description",
	}
	if err := st.CreateAppointment(context.Background(), a, languages); err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func countLanguages(t *testing.T, pool *pgxpool.Pool, userID, name string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM languages WHERE user_id = $1 AND name = $2`, userID, name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count languages: %v", err)
	}
	return n
}

// ----- language registry -----

func TestGetOrCreateLanguageIdempotent(t *testing.T) {
	st, pool := setup(t)
	uid := createUser(t, st)
	ctx := context.Background()

	first, err := st.GetOrCreateLanguage(ctx, uid, "Spanish")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	second, err := st.GetOrCreateLanguage(ctx, uid, "Spanish")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}
	if n := countLanguages(t, pool, uid, "Spanish"); n != 1 {
		t.Fatalf("language rows = %d, want 1", n)
	}
}

func TestGetOrCreateLanguageScopedToOwner(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	u1 := createUser(t, st)
	u2 := createUser(t, st)

	l1, err := st.GetOrCreateLanguage(ctx, u1, "Spanish")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	l2, err := st.GetOrCreateLanguage(ctx, u2, "Spanish")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if l1.ID == l2.ID {
		t.Fatal("same language row shared across owners")
	}
}

func TestListLanguagesOrderedByNameDesc(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)

	for _, name := range []string{"Arabic", "Yiddish", "Mandarin"} {
		if _, err := st.GetOrCreateLanguage(ctx, uid, name); err != nil {
			t.Fatalf("get or create: %v", err)
		}
	}

	langs, err := st.ListLanguages(ctx, uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Yiddish", "Mandarin", "Arabic"}
	if len(langs) != len(want) {
		t.Fatalf("got %d languages, want %d", len(langs), len(want))
	}
	for i, name := range want {
		if langs[i].Name != name {
			t.Fatalf("langs[%d] = %q, want %q", i, langs[i].Name, name)
		}
	}
}

func TestUpdateLanguageForeignOwner(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	owner := createUser(t, st)
	other := createUser(t, st)

	lang, err := st.GetOrCreateLanguage(ctx, owner, "Tagalog")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	if _, err := st.UpdateLanguage(ctx, other, lang.ID, "Filipino"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// name must be unchanged
	langs, err := st.ListLanguages(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(langs) != 1 || langs[0].Name != "Tagalog" {
		t.Fatalf("language changed: %+v", langs)
	}
}

func TestDeleteLanguageDetachesAppointments(t *testing.T) {
	st, pool := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)

	a := createAppointment(t, st, uid, "Thai")
	if len(a.Languages) != 1 {
		t.Fatalf("got %d languages, want 1", len(a.Languages))
	}

	if err := st.DeleteLanguage(ctx, uid, a.Languages[0].ID); err != nil {
		t.Fatalf("delete language: %v", err)
	}

	got, err := st.GetAppointment(ctx, uid, a.ID)
	if err != nil {
		t.Fatalf("appointment gone after language delete: %v", err)
	}
	if len(got.Languages) != 0 {
		t.Fatalf("association survived: %+v", got.Languages)
	}
	if n := countLanguages(t, pool, uid, "Thai"); n != 0 {
		t.Fatalf("language rows = %d, want 0", n)
	}
}

// ----- appointment repository -----

func TestCreateAppointmentWithNewLanguages(t *testing.T) {
	st, pool := setup(t)
	uid := createUser(t, st)

	a := createAppointment(t, st, uid, "Thai", "Chinese")
	if len(a.Languages) != 2 {
		t.Fatalf("got %d languages, want 2", len(a.Languages))
	}
	for _, l := range a.Languages {
		if l.UserID != uid {
			t.Fatalf("language %q owned by %q, want %q", l.Name, l.UserID, uid)
		}
		if n := countLanguages(t, pool, uid, l.Name); n != 1 {
			t.Fatalf("rows for %q = %d, want 1", l.Name, n)
		}
	}
}

func TestCreateAppointmentReusesExistingLanguage(t *testing.T) {
	st, pool := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)

	spanish, err := st.GetOrCreateLanguage(ctx, uid, "Spanish")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}

	a := createAppointment(t, st, uid, "Spanish", "Chinese")
	if len(a.Languages) != 2 {
		t.Fatalf("got %d languages, want 2", len(a.Languages))
	}
	found := false
	for _, l := range a.Languages {
		if l.Name == "Spanish" {
			found = true
			if l.ID != spanish.ID {
				t.Fatalf("Spanish id = %d, want reuse of %d", l.ID, spanish.ID)
			}
		}
	}
	if !found {
		t.Fatal("Spanish not attached")
	}
	if n := countLanguages(t, pool, uid, "Spanish"); n != 1 {
		t.Fatalf("Spanish rows = %d, want 1", n)
	}
}

func TestCreateAppointmentDuplicateNamesCollapse(t *testing.T) {
	st, _ := setup(t)
	uid := createUser(t, st)

	a := createAppointment(t, st, uid, "Thai", "Thai")
	if len(a.Languages) != 1 {
		t.Fatalf("got %d languages, want 1", len(a.Languages))
	}
}

func TestListAppointmentsScopedAndOrdered(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)
	other := createUser(t, st)

	first := createAppointment(t, st, uid)
	second := createAppointment(t, st, uid)
	createAppointment(t, st, other)

	apts, err := st.ListAppointments(ctx, uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apts) != 2 {
		t.Fatalf("got %d appointments, want 2", len(apts))
	}
	// most recently created first
	if apts[0].ID != second.ID || apts[1].ID != first.ID {
		t.Fatalf("order = [%d %d], want [%d %d]", apts[0].ID, apts[1].ID, second.ID, first.ID)
	}
}

func TestGetAppointmentForeignOwnerNotFound(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	owner := createUser(t, st)
	other := createUser(t, st)

	a := createAppointment(t, st, owner)
	if _, err := st.GetAppointment(ctx, other, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppointmentKeepsLanguagesWhenNotReplacing(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)

	a := createAppointment(t, st, uid, "Thai", "Chinese")
	got, err := st.UpdateAppointment(ctx, uid, a.ID, func(ap *model.Appointment) {
		ap.Title = "New Title"
	}, nil, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "New Title" {
		t.Fatalf("title = %q", got.Title)
	}
	if len(got.Languages) != 2 {
		t.Fatalf("languages = %d after scalar update, want 2", len(got.Languages))
	}
}

func TestUpdateAppointmentReplacesLanguages(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	uid := createUser(t, st)

	a := createAppointment(t, st, uid, "Thai")
	noop := func(*model.Appointment) {}

	got, err := st.UpdateAppointment(ctx, uid, a.ID, noop, []string{"Chinese"}, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Languages) != 1 || got.Languages[0].Name != "Chinese" {
		t.Fatalf("languages = %+v, want just Chinese", got.Languages)
	}

	// empty replacement clears everything
	got, err = st.UpdateAppointment(ctx, uid, a.ID, noop, nil, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Languages) != 0 {
		t.Fatalf("languages = %+v, want none", got.Languages)
	}
}

func TestUpdateAppointmentForeignOwnerNotFound(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	owner := createUser(t, st)
	other := createUser(t, st)

	a := createAppointment(t, st, owner)
	_, err := st.UpdateAppointment(ctx, other, a.ID, func(ap *model.Appointment) {
		ap.Title = "hijacked"
	}, nil, false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteAppointmentForeignOwnerNotFound(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	owner := createUser(t, st)
	other := createUser(t, st)

	a := createAppointment(t, st, owner)
	if err := st.DeleteAppointment(ctx, other, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// still there for the owner
	if _, err := st.GetAppointment(ctx, owner, a.ID); err != nil {
		t.Fatalf("appointment lost: %v", err)
	}

	if err := st.DeleteAppointment(ctx, owner, a.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := st.GetAppointment(ctx, owner, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}
