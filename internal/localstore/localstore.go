// Package localstore is the client's persisted key-value state: the theme
// preference and the auth session token. Stores enforce a byte quota so a full
// store fails writes the way browser storage does.
package localstore

import (
	"context"
	"fmt"
)

// DefaultQuota is the per-client byte budget (keys plus values).
const DefaultQuota = 5 * 1024 * 1024

// Well-known keys.
const (
	KeyTheme   = "theme"
	KeySession = "auth.session"
)

// Store is a per-client key-value store.
type Store interface {
	// Get returns ("", false, nil) for a missing key.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// QuotaError is returned by Set when the write would exceed the quota.
type QuotaError struct {
	Key   string
	Quota int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("QuotaExceededError: failed to set %q: the quota of %d bytes has been exceeded", e.Key, e.Quota)
}

// ErrorName reports the storage error class.
func (e *QuotaError) ErrorName() string { return "QuotaExceededError" }

func entrySize(key, value string) int { return len(key) + len(value) }
