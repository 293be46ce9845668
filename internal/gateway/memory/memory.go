// Package memory is an in-process gateway backend. It backs the server's
// development mode and stands in for the hosted backend in tests.
package memory

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

var tables = map[string]bool{
	gateway.TableProfiles:   true,
	gateway.TableInvites:    true,
	gateway.TableProgress:   true,
	gateway.TableAppContent: true,
}

type account struct {
	id       string
	email    string
	password string
}

// Backend holds the shared state every client sees: accounts, sessions, tables
// and uploaded files.
type Backend struct {
	PublicURL string

	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	sessions map[string]string   // token -> user id
	tables   map[string]map[string]gateway.Record
	files    map[string][]byte
	clients  map[*Client]struct{}
	failures map[string]error
	calls    map[string]int
}

// NewBackend creates an empty backend.
func NewBackend(publicURL string) *Backend {
	b := &Backend{
		PublicURL: strings.TrimRight(publicURL, "/"),
		accounts:  make(map[string]*account),
		sessions:  make(map[string]string),
		tables:    make(map[string]map[string]gateway.Record),
		files:     make(map[string][]byte),
		clients:   make(map[*Client]struct{}),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
	}
	for t := range tables {
		b.tables[t] = make(map[string]gateway.Record)
	}
	return b
}

// Fail makes every later call of op return err until cleared with a nil err.
// op is "signin", "signup", "signout", "upload" or "<verb>:<table>" where verb
// is get, list, upsert or delete.
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Calls returns how many times op was attempted.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// CreateAccount registers credentials and the matching profile row directly,
// the way an operator seeds an admin.
func (b *Backend) CreateAccount(email, password string, profile gateway.Record) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New().String()
	b.accounts[strings.ToLower(email)] = &account{id: id, email: email, password: password}
	row := b.defaultProfile(id, email, "", "")
	for k, v := range profile {
		row[k] = v
	}
	row["id"] = id
	b.tables[gateway.TableProfiles][id] = row
	return id
}

// File returns an uploaded file's bytes.
func (b *Backend) File(path string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	return data, ok
}

func (b *Backend) defaultProfile(id, email, name, avatar string) gateway.Record {
	return gateway.Record{
		"id":            id,
		"email":         email,
		"full_name":     name,
		"avatar_url":    avatar,
		"is_admin":      false,
		"is_banned":     false,
		"has_onboarded": false,
		"created_at":    time.Now().UTC().Format(time.RFC3339),
	}
}

// enter records a call and returns the injected failure, if any. Caller holds mu.
func (b *Backend) enter(op string) error {
	b.calls[op]++
	return b.failures[op]
}

func (b *Backend) newToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return base64.URLEncoding.EncodeToString(buf)
}

// userUpdated notifies every client signed in as userID.
func (b *Backend) userUpdated(userID string) {
	b.mu.Lock()
	var targets []*Client
	for c := range b.clients {
		if s := c.session(); s != nil && s.UserID == userID {
			targets = append(targets, c)
		}
	}
	b.mu.Unlock()
	for _, c := range targets {
		c.emit(gateway.EventUserUpdated, c.session())
	}
}

func copyRecord(r gateway.Record) gateway.Record {
	out := make(gateway.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matches(r gateway.Record, f gateway.Filter) bool {
	for k, want := range f {
		if fmt.Sprint(r[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func authErr(msg string) error {
	return gateway.NewAuthError(http.StatusBadRequest, msg)
}

func (b *Backend) get(table, id string) (gateway.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !tables[table] {
		return nil, gateway.ErrUnknownTable
	}
	if err := b.enter("get:" + table); err != nil {
		return nil, err
	}
	r, ok := b.tables[table][id]
	if !ok {
		return nil, nil
	}
	return copyRecord(r), nil
}

func (b *Backend) list(table string, f gateway.Filter) ([]gateway.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !tables[table] {
		return nil, gateway.ErrUnknownTable
	}
	if err := b.enter("list:" + table); err != nil {
		return nil, err
	}
	out := make([]gateway.Record, 0, len(b.tables[table]))
	for _, r := range b.tables[table] {
		if matches(r, f) {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"]) })
	return out, nil
}

func (b *Backend) upsert(table string, rec gateway.Record) error {
	b.mu.Lock()
	if !tables[table] {
		b.mu.Unlock()
		return gateway.ErrUnknownTable
	}
	if err := b.enter("upsert:" + table); err != nil {
		b.mu.Unlock()
		return err
	}
	id := fmt.Sprint(rec["id"])
	if rec["id"] == nil || id == "" {
		b.mu.Unlock()
		return fmt.Errorf("upsert %s: record has no id", table)
	}
	row, ok := b.tables[table][id]
	if !ok {
		row = gateway.Record{}
	}
	for k, v := range rec {
		row[k] = v
	}
	b.tables[table][id] = row
	b.mu.Unlock()

	if table == gateway.TableProfiles {
		b.userUpdated(id)
	}
	return nil
}

func (b *Backend) delete(table, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !tables[table] {
		return gateway.ErrUnknownTable
	}
	if err := b.enter("delete:" + table); err != nil {
		return err
	}
	delete(b.tables[table], id)
	return nil
}

func (b *Backend) upload(data []byte, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter("upload"); err != nil {
		return "", err
	}
	path = strings.TrimLeft(path, "/")
	b.files[path] = append([]byte(nil), data...)
	return b.PublicURL + "/storage/v1/object/public/" + path, nil
}
