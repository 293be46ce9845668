package backend

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

func newRedisService(t *testing.T) (*miniredis.Miniredis, sqlmock.Sqlmock, *Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := NewService(Options{DB: db, Redis: rc})
	svc.hub.minBackoff = 10 * time.Millisecond
	svc.hub.maxBackoff = 50 * time.Millisecond
	return mr, mock, svc
}

func TestRedisSessionsSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	mr, _, svc := newRedisService(t)
	if _, ok := svc.sessions.(*RedisSessions); !ok {
		t.Fatalf("expected Redis-backed sessions, got %T", svc.sessions)
	}

	token, err := svc.sessions.Create(ctx, "u1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := mr.TTL(SessionKeyPrefix + token); got != SessionDuration {
		t.Fatalf("session ttl = %v", got)
	}
	if ok, _ := mr.IsMember(UserSessionKeyPrefix+"u1", token); !ok {
		t.Fatalf("token missing from the user's session set")
	}

	mr.FastForward(6 * 24 * time.Hour)
	if id, ok, err := svc.sessions.Validate(ctx, token); err != nil || !ok || id != "u1" {
		t.Fatalf("Validate = %q %v %v", id, ok, err)
	}
	if got := mr.TTL(SessionKeyPrefix + token); got != SessionDuration {
		t.Fatalf("validate must push the expiry back, ttl = %v", got)
	}

	mr.FastForward(SessionDuration + time.Minute)
	if _, ok, err := svc.sessions.Validate(ctx, token); err != nil || ok {
		t.Fatalf("expired token still valid (%v)", err)
	}
}

func TestRedisSessionsInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, _, svc := newRedisService(t)
	a, _ := svc.sessions.Create(ctx, "u1")
	b, _ := svc.sessions.Create(ctx, "u1")
	other, _ := svc.sessions.Create(ctx, "u2")

	if err := svc.sessions.Invalidate(ctx, a); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := svc.sessions.Validate(ctx, a); ok {
		t.Fatalf("invalidated token still valid")
	}
	if ok, _ := mr.IsMember(UserSessionKeyPrefix+"u1", a); ok {
		t.Fatalf("invalidated token left in the user's session set")
	}

	if err := svc.sessions.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateUser: %v", err)
	}
	if _, ok, _ := svc.sessions.Validate(ctx, b); ok {
		t.Fatalf("InvalidateUser left a session behind")
	}
	if mr.Exists(UserSessionKeyPrefix + "u1") {
		t.Fatalf("InvalidateUser left the session set behind")
	}
	if id, ok, _ := svc.sessions.Validate(ctx, other); !ok || id != "u2" {
		t.Fatalf("another user's session was revoked")
	}
}

func TestBannedProfileRevokesSessions(t *testing.T) {
	ctx := context.Background()
	_, mock, svc := newRedisService(t)
	first, _ := svc.sessions.Create(ctx, "u1")
	second, _ := svc.sessions.Create(ctx, "u1")

	admin := svc.NewClient(localstore.NewMemory(0))
	defer admin.Close()
	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := admin.UpsertRecord(ctx, gateway.TableProfiles, gateway.Record{"id": "u1", "is_banned": true}); err != nil {
		t.Fatalf("UpsertRecord: %v", err)
	}
	for _, token := range []string{first, second} {
		if _, ok, _ := svc.sessions.Validate(ctx, token); ok {
			t.Fatalf("banned user's session %s still valid", token)
		}
	}

	// lifting the ban does not touch sessions
	third, _ := svc.sessions.Create(ctx, "u1")
	mock.ExpectExec("INSERT INTO profiles").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := admin.UpsertRecord(ctx, gateway.TableProfiles, gateway.Record{"id": "u1", "is_banned": false}); err != nil {
		t.Fatalf("UpsertRecord: %v", err)
	}
	if _, ok, _ := svc.sessions.Validate(ctx, third); !ok {
		t.Fatalf("unban revoked a session")
	}
}

// awaitEvent publishes until the subscriber delivers, since the subscription
// is established asynchronously.
func awaitEvent(t *testing.T, events <-chan gateway.Event, publish func()) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	publish()
	for {
		select {
		case e := <-events:
			if e != gateway.EventUserUpdated {
				t.Fatalf("unexpected event %s", e)
			}
			return
		case <-tick.C:
			publish()
		case <-deadline:
			t.Fatal("user event was not delivered")
		}
	}
}

func TestUserEventsTravelThroughRedis(t *testing.T) {
	mr, _, svc := newRedisService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	c := svc.NewClient(localstore.NewMemory(0))
	defer c.Close()
	c.setSession(&gateway.Session{AccessToken: "t", UserID: "u1"})
	events := make(chan gateway.Event, 16)
	c.OnSessionChange(func(e gateway.Event, s *gateway.Session) {
		if s == nil || s.UserID != "u1" {
			t.Errorf("event delivered with session %+v", s)
		}
		select {
		case events <- e:
		default:
		}
	})

	other := svc.NewClient(localstore.NewMemory(0))
	defer other.Close()
	other.setSession(&gateway.Session{AccessToken: "t2", UserID: "u2"})
	other.OnSessionChange(func(gateway.Event, *gateway.Session) {
		t.Errorf("event delivered to another user")
	})

	publish := func() {
		if err := svc.hub.publish(ctx, "u1"); err != nil {
			t.Errorf("publish: %v", err)
		}
	}
	awaitEvent(t, events, publish)

	// the subscriber comes back after the connection drops
	mr.Close()
	if err := mr.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	for len(events) > 0 {
		<-events
	}
	awaitEvent(t, events, func() {
		_ = svc.hub.publish(ctx, "u1")
	})
}
