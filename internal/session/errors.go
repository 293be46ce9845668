package session

import (
	"errors"
	"strings"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

var (
	// ErrConfiguration is returned by Login when the backend connection is not
	// configured. No backend call is attempted.
	ErrConfiguration = errors.New("configuration error: backend URL and anon key are not set")
	// ErrStorageQuota wraps the retry failure of the quota recovery path.
	ErrStorageQuota = errors.New("could not sign in: local storage is full (private browsing or disk full)")
	// ErrBanned is returned by Login when the signed-in account was vetoed.
	ErrBanned = errors.New("account has been blocked by an administrator")
)

// BannedNotice is the blocking message shown after a ban veto.
const BannedNotice = "Your account has been blocked by an administrator."

var quotaErrorNames = map[string]bool{
	"QuotaExceededError":         true,
	"NS_ERROR_DOM_QUOTA_REACHED": true,
}

// IsQuotaError reports whether err is a storage quota failure, judged by the
// error's name or its message.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var named interface{ ErrorName() string }
	if errors.As(err, &named) && quotaErrorNames[named.ErrorName()] {
		return true
	}
	var authErr *gateway.AuthError
	if errors.As(err, &authErr) && quotaErrorNames[authErr.Name] {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "exceeded")
}
