// Package gateway defines the contract the client core consumes from the hosted
// backend: credential auth, session change notifications, row-level records and
// file storage.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is the backend-issued proof of identity. The client treats the token
// as opaque.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Event names delivered with session change notifications.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventUserUpdated    Event = "USER_UPDATED"
)

// SessionListener receives every session change. session is nil after sign-out.
type SessionListener func(event Event, session *Session)

// Record is an untyped row as returned by the backend. Typed access lives in
// the records package.
type Record map[string]any

// Filter is an equality filter applied by ListRecords. A nil filter lists the
// whole table.
type Filter map[string]any

// Gateway is the backend collaborator. Implementations provide their own
// consistency and durability; the client adds no retries or caching on top.
type Gateway interface {
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(fn SessionListener) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, meta map[string]any) (*Session, error)
	SignOut(ctx context.Context) error

	// GetRecord returns (nil, nil) when no row matches.
	GetRecord(ctx context.Context, table, id string) (Record, error)
	ListRecords(ctx context.Context, table string, filter Filter) ([]Record, error)
	UpsertRecord(ctx context.Context, table string, rec Record) error
	DeleteRecord(ctx context.Context, table, id string) error

	UploadFile(ctx context.Context, data []byte, path string) (string, error)
}

// AuthError is returned by the auth operations. Name mirrors the error class the
// backend reports (for example "AuthApiError" or "QuotaExceededError").
type AuthError struct {
	Name    string
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

var (
	// ErrUnknownTable is returned for tables the backend does not expose.
	ErrUnknownTable = errors.New("gateway: unknown table")
	// ErrStorageUnavailable is returned by UploadFile when no file storage is configured.
	ErrStorageUnavailable = errors.New("gateway: file storage not configured")
)

// Table names used by the client.
const (
	TableProfiles   = "profiles"
	TableInvites    = "invites"
	TableProgress   = "user_progress"
	TableAppContent = "app_content"
)

// NewAuthError builds an AuthError with the generic API error name.
func NewAuthError(status int, msg string) *AuthError {
	return &AuthError{Name: "AuthApiError", Message: msg, Status: status}
}
