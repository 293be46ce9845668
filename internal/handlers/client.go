// Package handlers exposes each client's workspace over HTTP and WebSocket.
package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
)

// ClientCookie identifies the browser client across requests.
const ClientCookie = "vibes_client"

const clientCookieMaxAge = 365 * 24 * time.Hour

var (
	registry     *app.Registry
	log          logger.Logger = logger.Nop{}
	secureCookie bool
)

// Init wires the handlers to the workspace registry. secure marks the client
// cookie Secure and SameSite=None for cross-site frontends.
func Init(reg *app.Registry, l logger.Logger, secure bool) {
	registry = reg
	if l != nil {
		log = l
	}
	secureCookie = secure
}

// clientID returns the request's client id, issuing a cookie when the client
// has none or an invalid one.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.New().String()
	cookie := &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secureCookie {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, cookie)
	return id
}

// workspace resolves the client's workspace. The invite query parameter only
// matters on the client's first request.
func workspace(w http.ResponseWriter, r *http.Request) (*app.Workspace, bool) {
	if registry == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Workspace registry not initialized")
		return nil, false
	}
	id := clientID(w, r)
	ws, err := registry.Get(r.Context(), id, r.URL.Query().Get("invite"))
	if err != nil {
		log.Error("failed to open workspace", id, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to open workspace")
		return nil, false
	}
	return ws, true
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
}

// GetState returns the client's workspace state.
func GetState(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	writeState(w, ws, "")
}
