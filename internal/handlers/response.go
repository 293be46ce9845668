package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/content"
	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/records"
	"github.com/AnshRaj112/vibes-platform/internal/session"
	"github.com/AnshRaj112/vibes-platform/internal/view"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StateResponse carries the workspace state after an action.
type StateResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	State   app.Snapshot `json:"state"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: status < 400, Message: msg})
}

func writeState(w http.ResponseWriter, ws *app.Workspace, msg string) {
	writeJSON(w, http.StatusOK, StateResponse{Success: true, Message: msg, State: ws.Snapshot()})
}

// writeError maps err onto a status code and the envelope. Server errors are
// logged with the signed-in user of ws attached.
func writeError(w http.ResponseWriter, ws *app.Workspace, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		if p, ok := person(ws); ok {
			log.Error("request failed", err, p)
		} else {
			log.Error("request failed", err)
		}
	}
	writeMessage(w, status, msg)
}

func person(ws *app.Workspace) (logger.Person, bool) {
	if ws == nil {
		return logger.Person{}, false
	}
	st := ws.Session.State()
	if st.Session == nil {
		return logger.Person{}, false
	}
	p := logger.Person{ID: st.Session.UserID, Email: st.Session.Email}
	if st.Profile != nil {
		p.Name = st.Profile.FullName
		if st.Profile.Email != "" {
			p.Email = st.Profile.Email
		}
	}
	return p, true
}

func statusFor(err error) (int, string) {
	var authErr *gateway.AuthError
	var validationErr *records.ValidationError
	switch {
	case errors.Is(err, app.ErrNotSignedIn):
		return http.StatusUnauthorized, "You must be signed in"
	case errors.Is(err, app.ErrForbidden), errors.Is(err, app.ErrModeNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, session.ErrBanned):
		return http.StatusForbidden, session.BannedNotice
	case errors.Is(err, session.ErrConfiguration):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, session.ErrStorageQuota):
		return http.StatusInsufficientStorage, session.ErrStorageQuota.Error()
	case errors.Is(err, content.ErrUnknownCollection), errors.Is(err, app.ErrUnknownLesson),
		errors.Is(err, app.ErrUnknownStudent):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, app.ErrInvalidCount), errors.Is(err, app.ErrEmptyUpload),
		errors.Is(err, view.ErrUnknownTab), errors.Is(err, view.ErrUnknownMode):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &authErr):
		status := authErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadRequest
		}
		return status, authErr.Message
	case errors.Is(err, gateway.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "File storage is not configured"
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
