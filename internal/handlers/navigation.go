package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/vibes-platform/internal/view"
)

type tabRequest struct {
	Tab string `json:"tab"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

// viewTransition handles the explicit auth screen transitions. They are
// ignored while a session is active.
func viewTransition(move func(*view.Router) view.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := workspace(w, r)
		if !ok {
			return
		}
		move(ws.Router)
		ws.Changed()
		writeState(w, ws, "")
	}
}

var (
	GoRegister      = viewTransition((*view.Router).GoRegister)
	GoLogin         = viewTransition((*view.Router).GoLogin)
	GoResetPassword = viewTransition((*view.Router).GoResetPassword)
	ResetComplete   = viewTransition((*view.Router).ResetComplete)
)

// SetTab handles POST /api/nav/tab
func SetTab(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req tabRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tab, err := view.ParseTab(req.Tab)
	if err != nil {
		writeError(w, ws, err)
		return
	}
	ws.Router.SetTab(tab)
	ws.Changed()
	writeState(w, ws, "")
}

// SetMode handles POST /api/nav/mode
func SetMode(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := ws.SetMode(view.Mode(req.Mode)); err != nil {
		writeError(w, ws, err)
		return
	}
	writeState(w, ws, "")
}

// AskAssistant handles POST /api/assistant/ask
func AskAssistant(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeMessage(w, http.StatusBadRequest, "prompt is required")
		return
	}
	ws.Router.AskAI(req.Prompt)
	ws.Changed()
	writeState(w, ws, "")
}

// AssistantHandled handles POST /api/assistant/handled
func AssistantHandled(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	ws.Router.AssistantHandled()
	ws.Changed()
	writeState(w, ws, "")
}

// ToggleTheme handles POST /api/theme/toggle
func ToggleTheme(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if _, err := ws.Theme.Toggle(r.Context()); err != nil {
		writeError(w, ws, err)
		return
	}
	ws.Changed()
	writeState(w, ws, "")
}
