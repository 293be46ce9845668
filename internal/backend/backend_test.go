package backend

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
	n      int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]string)}
}

func (f *fakeSessions) Create(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	token := userID + "-token-" + string(rune('a'+f.n))
	f.tokens[token] = userID
	return token, nil
}

func (f *fakeSessions) Validate(_ context.Context, token string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeSessions) Invalidate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeSessions) InvalidateUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, id := range f.tokens {
		if id == userID {
			delete(f.tokens, token)
		}
	}
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeSessions) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sessions := newFakeSessions()
	return NewService(Options{DB: db, Sessions: sessions}), mock, sessions
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if ok, err := VerifyPassword("correct horse", hash); err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	if ok, _ := VerifyPassword("wrong horse", hash); ok {
		t.Fatalf("wrong password verified")
	}
	if _, err := VerifyPassword("x", "$bcrypt$nope"); !errors.Is(err, errInvalidHash) {
		t.Fatalf("expected errInvalidHash, got %v", err)
	}
	other, _ := HashPassword("correct horse")
	if other == hash {
		t.Fatalf("hashes must be salted")
	}
}

func TestSplitUploadPath(t *testing.T) {
	cases := []struct{ in, folder, id string }{
		{"uploads/u1/abc-photo.png", "uploads/u1", "abc-photo"},
		{"/avatar.jpg", "", "avatar"},
		{"uploads/../x/notes", "x", "notes"},
	}
	for _, tc := range cases {
		folder, id := splitUploadPath(tc.in)
		if folder != tc.folder || id != tc.id {
			t.Fatalf("splitUploadPath(%q) = %q, %q", tc.in, folder, id)
		}
	}
}

func TestTablesGet(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	tables := NewTables(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, avatar_url, is_admin, is_banned, has_onboarded, created_at FROM profiles WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(schemas[gateway.TableProfiles].columns).
			AddRow([]byte("u1"), "a@b.co", "Ada", "", true, false, true, created))
	rec, err := tables.Get(context.Background(), gateway.TableProfiles, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec["id"] != "u1" || rec["is_admin"] != true || rec["created_at"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected record %+v", rec)
	}

	mock.ExpectQuery("SELECT .* FROM profiles WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(schemas[gateway.TableProfiles].columns))
	rec, err = tables.Get(context.Background(), gateway.TableProfiles, "missing")
	if err != nil || rec != nil {
		t.Fatalf("missing row should be (nil, nil), got %+v %v", rec, err)
	}

	if _, err := tables.Get(context.Background(), "auth_users", "u1"); !errors.Is(err, gateway.ErrUnknownTable) {
		t.Fatalf("auth_users must not be readable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTablesListFilter(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	tables := NewTables(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, lesson_id, completed_at FROM user_progress WHERE lesson_id = $1 AND user_id = $2 ORDER BY id")).
		WithArgs("m1-l1", "u1").
		WillReturnRows(sqlmock.NewRows(schemas[gateway.TableProgress].columns).
			AddRow("u1:m1-l1", "u1", "m1-l1", time.Now()))
	rows, err := tables.List(context.Background(), gateway.TableProgress, gateway.Filter{"user_id": "u1", "lesson_id": "m1-l1"})
	if err != nil || len(rows) != 1 || rows[0]["lesson_id"] != "m1-l1" {
		t.Fatalf("List = %+v %v", rows, err)
	}

	if _, err := tables.List(context.Background(), gateway.TableProgress, gateway.Filter{"1=1; DROP TABLE x; --": 1}); err == nil {
		t.Fatalf("unknown filter column accepted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTablesUpsertAndDelete(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	tables := NewTables(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invites (id, status, used_by) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, used_by = EXCLUDED.used_by")).
		WithArgs("i1", "used", "a@b.co").
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := tables.Upsert(context.Background(), gateway.TableInvites, gateway.Record{"id": "i1", "status": "used", "used_by": "a@b.co"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := tables.Upsert(context.Background(), gateway.TableInvites, gateway.Record{"status": "used"}); err == nil {
		t.Fatalf("record without id accepted")
	}
	if err := tables.Upsert(context.Background(), gateway.TableInvites, gateway.Record{"id": "i1", "password_hash": "x"}); err == nil {
		t.Fatalf("unknown column accepted")
	}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM invites WHERE id = $1")).
		WithArgs("i1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := tables.Delete(context.Background(), gateway.TableInvites, "i1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSignUpCreatesAccountAndProfile(t *testing.T) {
	svc, mock, sessions := newTestService(t)
	store := localstore.NewMemory(0)
	c := svc.NewClient(store)
	defer c.Close()

	var events []gateway.Event
	c.OnSessionChange(func(e gateway.Event, _ *gateway.Session) { events = append(events, e) })

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM auth_users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("new@vibes.dev").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO auth_users (email, password_hash) VALUES ($1, $2) RETURNING id")).
		WithArgs("new@vibes.dev", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-42"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (id, email, full_name, avatar_url) VALUES ($1, $2, $3, $4)")).
		WithArgs("u-42", "new@vibes.dev", "Newbie", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	s, err := c.SignUp(context.Background(), " new@vibes.dev ", "secret1", map[string]any{"full_name": "Newbie"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if s.UserID != "u-42" {
		t.Fatalf("session user = %s", s.UserID)
	}
	if _, ok, _ := sessions.Validate(context.Background(), s.AccessToken); !ok {
		t.Fatalf("token not registered")
	}
	if raw, ok, _ := store.Get(context.Background(), localstore.KeySession); !ok || raw == "" {
		t.Fatalf("session not persisted locally")
	}
	if len(events) != 1 || events[0] != gateway.EventSignedIn {
		t.Fatalf("events = %v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSignUpRejectsDuplicateAndShortPassword(t *testing.T) {
	svc, mock, _ := newTestService(t)
	c := svc.NewClient(localstore.NewMemory(0))
	defer c.Close()

	var authErr *gateway.AuthError
	if _, err := c.SignUp(context.Background(), "a@b.co", "123", nil); !errors.As(err, &authErr) || authErr.Status != 422 {
		t.Fatalf("expected 422 AuthError, got %v", err)
	}

	mock.ExpectQuery("SELECT 1 FROM auth_users").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	_, err := c.SignUp(context.Background(), "taken@vibes.dev", "secret1", nil)
	if !errors.As(err, &authErr) || authErr.Message != "User already registered" {
		t.Fatalf("expected already registered, got %v", err)
	}
}

func TestSignInAndResume(t *testing.T) {
	svc, mock, _ := newTestService(t)
	store := localstore.NewMemory(0)
	c := svc.NewClient(store)
	defer c.Close()
	hash, _ := HashPassword("secret1")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash FROM auth_users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("Ada@Vibes.dev").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).AddRow("u1", "ada@vibes.dev", hash))
	s, err := c.SignIn(context.Background(), "Ada@Vibes.dev", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.Email != "ada@vibes.dev" {
		t.Fatalf("email = %s", s.Email)
	}

	// a fresh client over the same store resumes the session
	resumed := svc.NewClient(store)
	defer resumed.Close()
	got, err := resumed.CurrentSession(context.Background())
	if err != nil || got == nil || got.AccessToken != s.AccessToken {
		t.Fatalf("CurrentSession = %+v %v", got, err)
	}

	if err := resumed.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	third := svc.NewClient(store)
	defer third.Close()
	if got, _ := third.CurrentSession(context.Background()); got != nil {
		t.Fatalf("session survived sign-out: %+v", got)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	svc, mock, _ := newTestService(t)
	c := svc.NewClient(localstore.NewMemory(0))
	defer c.Close()
	hash, _ := HashPassword("secret1")

	mock.ExpectQuery("SELECT id, email, password_hash FROM auth_users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash"}).AddRow("u1", "a@b.co", hash))
	var authErr *gateway.AuthError
	if _, err := c.SignIn(context.Background(), "a@b.co", "nope"); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}

	mock.ExpectQuery("SELECT id, email, password_hash FROM auth_users").WillReturnError(sql.ErrNoRows)
	if _, err := c.SignIn(context.Background(), "ghost@b.co", "secret1"); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for unknown user, got %v", err)
	}
}

func TestProfileUpsertNotifiesOwner(t *testing.T) {
	svc, mock, _ := newTestService(t)
	c := svc.NewClient(localstore.NewMemory(0))
	defer c.Close()
	c.setSession(&gateway.Session{AccessToken: "t", UserID: "u1"})
	other := svc.NewClient(localstore.NewMemory(0))
	defer other.Close()
	other.setSession(&gateway.Session{AccessToken: "t2", UserID: "u2"})

	var mine, theirs int
	c.OnSessionChange(func(e gateway.Event, _ *gateway.Session) {
		if e == gateway.EventUserUpdated {
			mine++
		}
	})
	other.OnSessionChange(func(gateway.Event, *gateway.Session) { theirs++ })

	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := c.UpsertRecord(context.Background(), gateway.TableProfiles, gateway.Record{"id": "u1", "has_onboarded": true}); err != nil {
		t.Fatalf("UpsertRecord: %v", err)
	}
	if mine != 1 || theirs != 0 {
		t.Fatalf("notifications mine=%d theirs=%d", mine, theirs)
	}
}

func TestUnconfiguredStores(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := svc.NewClient(localstore.NewMemory(0))
	defer c.Close()
	if _, err := c.GetRecord(context.Background(), gateway.TableAppContent, "modules"); !errors.Is(err, gateway.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable without Mongo, got %v", err)
	}
	if _, err := c.UploadFile(context.Background(), []byte("x"), "a/b"); !errors.Is(err, gateway.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
