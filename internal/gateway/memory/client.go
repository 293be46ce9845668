package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

const sessionTTL = 7 * 24 * time.Hour

// Client is one browser client's view of the Backend. It persists its session
// token in the client's local store.
type Client struct {
	backend *Backend
	store   localstore.Store

	mu        sync.Mutex
	current   *gateway.Session
	listeners map[int]gateway.SessionListener
	nextID    int
}

var _ gateway.Gateway = (*Client)(nil)

// NewClient attaches a client to the backend.
func (b *Backend) NewClient(store localstore.Store) *Client {
	c := &Client{backend: b, store: store, listeners: make(map[int]gateway.SessionListener)}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Close detaches the client from the backend's notifications.
func (c *Client) Close() {
	c.backend.mu.Lock()
	delete(c.backend.clients, c)
	c.backend.mu.Unlock()
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

	c.backend.mu.Lock()
	userID, valid := c.backend.sessions[s.AccessToken]
	c.backend.mu.Unlock()
	if !valid || userID != s.UserID || time.Now().After(s.ExpiresAt) {
		_ = c.store.Remove(ctx, localstore.KeySession)
		return nil, nil
	}
	c.setSession(&s)
	return &s, nil
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

// establish issues a token for acct and persists it locally.
func (c *Client) establish(ctx context.Context, acct *account) (*gateway.Session, error) {
	c.backend.mu.Lock()
	token := c.backend.newToken()
	c.backend.sessions[token] = acct.id
	c.backend.mu.Unlock()

	s := &gateway.Session{
		AccessToken: token,
		UserID:      acct.id,
		Email:       acct.email,
		ExpiresAt:   time.Now().Add(sessionTTL),
	}
	raw, _ := json.Marshal(s)
	if err := c.store.Set(ctx, localstore.KeySession, string(raw)); err != nil {
		c.backend.mu.Lock()
		delete(c.backend.sessions, token)
		c.backend.mu.Unlock()
		return nil, fmt.Errorf("persist session: %w", err)
	}
	c.setSession(s)
	c.emit(gateway.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	b := c.backend
	b.mu.Lock()
	if err := b.enter("signin"); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	acct, ok := b.accounts[strings.ToLower(strings.TrimSpace(email))]
	b.mu.Unlock()
	if !ok || acct.password != password {
		return nil, authErr("Invalid login credentials")
	}
	return c.establish(ctx, acct)
}

func (c *Client) SignUp(ctx context.Context, email, password string, meta map[string]any) (*gateway.Session, error) {
	b := c.backend
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 6 {
		return nil, gateway.NewAuthError(http.StatusUnprocessableEntity, "Password should be at least 6 characters")
	}

	b.mu.Lock()
	if err := b.enter("signup"); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	key := strings.ToLower(email)
	if _, exists := b.accounts[key]; exists {
		b.mu.Unlock()
		return nil, gateway.NewAuthError(http.StatusUnprocessableEntity, "User already registered")
	}
	acct := &account{id: uuid.New().String(), email: email, password: password}
	b.accounts[key] = acct
	name, _ := meta["full_name"].(string)
	avatar, _ := meta["avatar_url"].(string)
	b.tables[gateway.TableProfiles][acct.id] = b.defaultProfile(acct.id, email, name, avatar)
	b.mu.Unlock()

	return c.establish(ctx, acct)
}

func (c *Client) SignOut(ctx context.Context) error {
	b := c.backend
	b.mu.Lock()
	if err := b.enter("signout"); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	if s := c.session(); s != nil {
		b.mu.Lock()
		delete(b.sessions, s.AccessToken)
		b.mu.Unlock()
	}
	c.setSession(nil)
	if err := c.store.Remove(ctx, localstore.KeySession); err != nil {
		return err
	}
	c.emit(gateway.EventSignedOut, nil)
	return nil
}

func (c *Client) GetRecord(_ context.Context, table, id string) (gateway.Record, error) {
	return c.backend.get(table, id)
}

func (c *Client) ListRecords(_ context.Context, table string, filter gateway.Filter) ([]gateway.Record, error) {
	return c.backend.list(table, filter)
}

func (c *Client) UpsertRecord(_ context.Context, table string, rec gateway.Record) error {
	return c.backend.upsert(table, rec)
}

func (c *Client) DeleteRecord(_ context.Context, table, id string) error {
	return c.backend.delete(table, id)
}

func (c *Client) UploadFile(_ context.Context, data []byte, path string) (string, error) {
	return c.backend.upload(data, path)
}
