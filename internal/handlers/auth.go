package handlers

import (
	"net/http"
	"strings"

	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the registration form. InviteCode falls back to the
// invite the client arrived with.
type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar,omitempty"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode,omitempty"`
}

// InviteResponse reports whether an invite code can be redeemed.
type InviteResponse struct {
	Success bool           `json:"success"`
	Valid   bool           `json:"valid"`
	Invite  *models.Invite `json:"invite,omitempty"`
}

// Login handles POST /api/auth/login
func Login(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if err := ws.Session.Login(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, ws, err)
		return
	}
	writeState(w, ws, "Signed in")
}

// Register handles POST /api/auth/register
func Register(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	code := strings.TrimSpace(req.InviteCode)
	if code == "" {
		code = ws.Router.State().PendingInvite
	}
	data := models.RegisterData{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Avatar:   strings.TrimSpace(req.Avatar),
		Password: req.Password,
	}
	if err := ws.Session.Register(r.Context(), data, code); err != nil {
		writeError(w, ws, err)
		return
	}
	writeState(w, ws, "Account created")
}

// Logout handles POST /api/auth/logout. Local state is cleared even when the
// backend call fails; the failure is still reported.
func Logout(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Session.Logout(r.Context()); err != nil {
		log.Warn("sign out failed", err)
		writeError(w, ws, err)
		return
	}
	writeState(w, ws, "Signed out")
}

// CompleteOnboarding handles POST /api/onboarding/complete
func CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Session.CompleteOnboarding(r.Context()); err != nil {
		writeError(w, ws, err)
		return
	}
	writeState(w, ws, "")
}

// ValidateInvite handles GET /api/invites/validate?code=
func ValidateInvite(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "code is required")
		return
	}
	inv, err := ws.Session.ValidateInvite(r.Context(), code)
	if err != nil {
		writeError(w, ws, err)
		return
	}
	writeJSON(w, http.StatusOK, InviteResponse{Success: true, Valid: inv != nil, Invite: inv})
}

// DismissNotice handles POST /api/notice/dismiss
func DismissNotice(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	ws.Session.DismissNotice()
	writeState(w, ws, "")
}
