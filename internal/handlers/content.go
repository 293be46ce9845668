package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/content"
)

// maxContentBody bounds a published collection.
const maxContentBody = 2 << 20

// ContentResponse carries every content collection.
type ContentResponse struct {
	Success bool             `json:"success"`
	Content content.Snapshot `json:"content"`
}

// CollectionResponse carries one collection.
type CollectionResponse struct {
	Success bool        `json:"success"`
	Name    string      `json:"name"`
	Items   interface{} `json:"items"`
}

// LessonResponse reports a lesson's completion after a toggle.
type LessonResponse struct {
	Success          bool     `json:"success"`
	LessonID         string   `json:"lessonId"`
	Completed        bool     `json:"completed"`
	CompletedLessons []string `json:"completedLessons"`
}

// GetContent handles GET /api/content
func GetContent(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Success: true, Content: ws.Content.Snapshot()})
}

// GetCollection handles GET /api/content/{name}
func GetCollection(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	items, err := ws.Content.Get(content.Name(name))
	if err != nil {
		writeError(w, ws, err)
		return
	}
	writeJSON(w, http.StatusOK, CollectionResponse{Success: true, Name: name, Items: items})
}

// RefreshContent handles POST /api/content/refresh. Failed collections keep
// their current value.
func RefreshContent(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	ws.Content.Load(r.Context())
	writeJSON(w, http.StatusOK, ContentResponse{Success: true, Content: ws.Content.Snapshot()})
}

// PublishCollection handles PUT /api/content/{name}. The body is the JSON
// array of items.
func PublishCollection(w http.ResponseWriter, r *http.Request) {
	writeCollection(w, r, func(ws *app.Workspace, name content.Name, body []byte) error {
		return ws.PublishContent(r.Context(), name, body)
	})
}

// EditCollection handles PATCH /api/content/{name}: the collection changes for
// this client only and stays unpublished.
func EditCollection(w http.ResponseWriter, r *http.Request) {
	writeCollection(w, r, func(ws *app.Workspace, name content.Name, body []byte) error {
		return ws.EditContent(name, body)
	})
}

func writeCollection(w http.ResponseWriter, r *http.Request, apply func(*app.Workspace, content.Name, []byte) error) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	name := content.Name(chi.URLParam(r, "name"))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentBody))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "Content is too large")
		return
	}
	if err := apply(ws, name, body); err != nil {
		writeError(w, ws, err)
		return
	}
	items, _ := ws.Content.Get(name)
	writeJSON(w, http.StatusOK, CollectionResponse{Success: true, Name: string(name), Items: items})
}

// ToggleLesson handles POST /api/lessons/{id}/toggle
func ToggleLesson(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	done, err := ws.ToggleLesson(r.Context(), id)
	if err != nil {
		writeError(w, ws, err)
		return
	}
	writeJSON(w, http.StatusOK, LessonResponse{
		Success:          true,
		LessonID:         id,
		Completed:        done,
		CompletedLessons: ws.CompletedLessons(),
	})
}
