package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/vibes-platform/internal/models"
)

// StudentsResponse is the admin roster.
type StudentsResponse struct {
	Success  bool             `json:"success"`
	Students []models.Student `json:"students"`
	Loading  bool             `json:"loading"`
}

// InvitesResponse is the admin invite list.
type InvitesResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Invites []models.Invite `json:"invites"`
	Created []models.Invite `json:"created,omitempty"`
}

type banRequest struct {
	Banned bool `json:"banned"`
}

type createInvitesRequest struct {
	Count int `json:"count"`
}

// GetStudents handles GET /api/admin/students
func GetStudents(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	data, err := ws.AdminData()
	if err != nil {
		writeError(w, ws, err)
		return
	}
	writeJSON(w, http.StatusOK, StudentsResponse{Success: true, Students: data.Students, Loading: data.Loading})
}

// SetStudentBan handles PUT /api/admin/students/{id}/ban
func SetStudentBan(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	var req banRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := ws.SetStudentBanned(r.Context(), chi.URLParam(r, "id"), req.Banned); err != nil {
		writeError(w, ws, err)
		return
	}
	data, _ := ws.AdminData()
	writeJSON(w, http.StatusOK, StudentsResponse{Success: true, Students: data.Students})
}

// GetInvites handles GET /api/admin/invites
func GetInvites(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	data, err := ws.AdminData()
	if err != nil {
		writeError(w, ws, err)
		return
	}
	writeJSON(w, http.StatusOK, InvitesResponse{Success: true, Invites: data.Invites})
}

// CreateInvites handles POST /api/admin/invites. Count defaults to one.
func CreateInvites(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	req := createInvitesRequest{Count: 1}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	created, err := ws.GenerateInvites(r.Context(), req.Count)
	if err != nil {
		writeError(w, ws, err)
		return
	}
	data, _ := ws.AdminData()
	writeJSON(w, http.StatusCreated, InvitesResponse{Success: true, Invites: data.Invites, Created: created})
}

// DeleteInvite handles DELETE /api/admin/invites/{id}
func DeleteInvite(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if err := ws.DeleteInvite(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, ws, err)
		return
	}
	data, _ := ws.AdminData()
	writeJSON(w, http.StatusOK, InvitesResponse{Success: true, Message: "Invite deleted", Invites: data.Invites})
}

// RefreshAdmin handles POST /api/admin/refresh
func RefreshAdmin(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	if err := ws.RefreshAdmin(r.Context()); err != nil {
		writeError(w, ws, err)
		return
	}
	data, _ := ws.AdminData()
	writeJSON(w, http.StatusOK, struct {
		Success  bool             `json:"success"`
		Students []models.Student `json:"students"`
		Invites  []models.Invite  `json:"invites"`
	}{true, data.Students, data.Invites})
}
