package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

// MinPasswordLength is enforced at sign-up.
const MinPasswordLength = 6

const uniqueViolation = "23505"

// Client is one browser client's gateway.
type Client struct {
	svc   *Service
	store localstore.Store

	mu        sync.Mutex
	current   *gateway.Session
	listeners map[int]gateway.SessionListener
	nextID    int
}

var _ gateway.Gateway = (*Client)(nil)

func newClient(s *Service, store localstore.Store) *Client {
	return &Client{svc: s, store: store, listeners: make(map[int]gateway.SessionListener)}
}

// Close stops user event delivery to the client.
func (c *Client) Close() {
	c.svc.hub.unregister(c)
}

func (c *Client) session() *gateway.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	s := *c.current
	return &s
}

func (c *Client) setSession(s *gateway.Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

func (c *Client) emit(event gateway.Event, s *gateway.Session) {
	c.mu.Lock()
	fns := make([]gateway.SessionListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(event, s)
	}
}

func (c *Client) OnSessionChange(fn gateway.SessionListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) sessions() (Sessions, error) {
	if c.svc.sessions == nil {
		return nil, &gateway.AuthError{Name: "AuthRetryableFetchError", Message: "session store not configured", Status: http.StatusServiceUnavailable}
	}
	return c.svc.sessions, nil
}

// CurrentSession restores the persisted token when the session store still
// knows it; stale tokens are dropped from the local store.
func (c *Client) CurrentSession(ctx context.Context) (*gateway.Session, error) {
	if s := c.session(); s != nil {
		return s, nil
	}
	raw, ok, err := c.store.Get(ctx, localstore.KeySession)
	if err != nil || !ok {
		return nil, err
	}
	var s gateway.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		_ = c.store.Remove(ctx, localstore.KeySession)
		return nil, nil
	}
	sessions, err := c.sessions()
	if err != nil {
		return nil, err
	}
	userID, valid, err := sessions.Validate(ctx, s.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if !valid || userID != s.UserID || time.Now().After(s.ExpiresAt) {
		_ = c.store.Remove(ctx, localstore.KeySession)
		return nil, nil
	}
	c.setSession(&s)
	return &s, nil
}

func (c *Client) establish(ctx context.Context, userID, email string) (*gateway.Session, error) {
	sessions, err := c.sessions()
	if err != nil {
		return nil, err
	}
	token, err := sessions.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s := &gateway.Session{
		AccessToken: token,
		UserID:      userID,
		Email:       email,
		ExpiresAt:   time.Now().Add(SessionDuration),
	}
	raw, _ := json.Marshal(s)
	if err := c.store.Set(ctx, localstore.KeySession, string(raw)); err != nil {
		_ = sessions.Invalidate(ctx, token)
		return nil, fmt.Errorf("persist session: %w", err)
	}
	c.setSession(s)
	c.emit(gateway.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	var id, stored, hash string
	err := c.svc.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM auth_users WHERE LOWER(email) = LOWER($1)`,
		strings.TrimSpace(email)).Scan(&id, &stored, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gateway.NewAuthError(http.StatusBadRequest, "Invalid login credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	ok, err := VerifyPassword(password, hash)
	if err != nil {
		c.svc.log.Error("stored password hash unreadable", id, err)
	}
	if !ok {
		return nil, gateway.NewAuthError(http.StatusBadRequest, "Invalid login credentials")
	}
	return c.establish(ctx, id, stored)
}

// SignUp creates the account and its profile row in one transaction.
func (c *Client) SignUp(ctx context.Context, email, password string, meta map[string]any) (*gateway.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < MinPasswordLength {
		return nil, gateway.NewAuthError(http.StatusUnprocessableEntity, "Password should be at least 6 characters")
	}
	registered := gateway.NewAuthError(http.StatusUnprocessableEntity, "User already registered")

	var exists int
	err := c.svc.db.QueryRowContext(ctx, `SELECT 1 FROM auth_users WHERE LOWER(email) = LOWER($1)`, email).Scan(&exists)
	if err == nil {
		return nil, registered
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	name, _ := meta["full_name"].(string)
	avatar, _ := meta["avatar_url"].(string)

	tx, err := c.svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO auth_users (email, password_hash) VALUES ($1, $2) RETURNING id`,
		email, hash).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, registered
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, avatar_url) VALUES ($1, $2, $3, $4)`,
		id, email, name, avatar)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return c.establish(ctx, id, email)
}

func (c *Client) SignOut(ctx context.Context) error {
	if s := c.session(); s != nil && c.svc.sessions != nil {
		if err := c.svc.sessions.Invalidate(ctx, s.AccessToken); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	c.setSession(nil)
	if err := c.store.Remove(ctx, localstore.KeySession); err != nil {
		return err
	}
	c.emit(gateway.EventSignedOut, nil)
	return nil
}

func (c *Client) GetRecord(ctx context.Context, table, id string) (gateway.Record, error) {
	if table == gateway.TableAppContent {
		if c.svc.content == nil {
			return nil, gateway.ErrUnknownTable
		}
		return c.svc.content.Get(ctx, id)
	}
	return c.svc.tables.Get(ctx, table, id)
}

func (c *Client) ListRecords(ctx context.Context, table string, filter gateway.Filter) ([]gateway.Record, error) {
	if table == gateway.TableAppContent {
		if c.svc.content == nil {
			return nil, gateway.ErrUnknownTable
		}
		return c.svc.content.List(ctx, filter)
	}
	return c.svc.tables.List(ctx, table, filter)
}

// UpsertRecord publishes USER_UPDATED to the profile's owner after a profile
// write. Banning a profile also revokes every session the user holds.
func (c *Client) UpsertRecord(ctx context.Context, table string, rec gateway.Record) error {
	if table == gateway.TableAppContent {
		if c.svc.content == nil {
			return gateway.ErrUnknownTable
		}
		return c.svc.content.Upsert(ctx, rec)
	}
	if err := c.svc.tables.Upsert(ctx, table, rec); err != nil {
		return err
	}
	if table == gateway.TableProfiles {
		id, _ := rec["id"].(string)
		if banned, _ := rec["is_banned"].(bool); banned && c.svc.sessions != nil {
			if err := c.svc.sessions.InvalidateUser(ctx, id); err != nil {
				c.svc.log.Warn("failed to revoke sessions of banned user", id, err)
			}
		}
		if err := c.svc.hub.publish(ctx, id); err != nil {
			c.svc.log.Warn("failed to publish user event", id, err)
		}
	}
	return nil
}

func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	if table == gateway.TableAppContent {
		if c.svc.content == nil {
			return gateway.ErrUnknownTable
		}
		return c.svc.content.Delete(ctx, id)
	}
	return c.svc.tables.Delete(ctx, table, id)
}

func (c *Client) UploadFile(ctx context.Context, data []byte, path string) (string, error) {
	if c.svc.files == nil {
		return "", gateway.ErrStorageUnavailable
	}
	return c.svc.files.Upload(ctx, data, path)
}
