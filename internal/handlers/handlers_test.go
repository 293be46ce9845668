package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/vibes-platform/internal/app"
	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/gateway/memory"
	"github.com/AnshRaj112/vibes-platform/internal/handlers"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
	"github.com/AnshRaj112/vibes-platform/internal/records"
	"github.com/AnshRaj112/vibes-platform/internal/routes"
	"github.com/AnshRaj112/vibes-platform/internal/view"
)

const backendURL = "http://localhost:54321"

type harness struct {
	t       *testing.T
	backend *memory.Backend
	mux     *chi.Mux
	reg     *app.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := memory.NewBackend(backendURL)
	reg := app.NewRegistry(func(ctx context.Context, clientID, invite string) (*app.Workspace, error) {
		store := localstore.NewMemory(0)
		c := b.NewClient(store)
		return app.Open(ctx, clientID, app.Deps{
			Gateway:    c,
			Store:      store,
			BackendURL: backendURL,
			InviteCode: invite,
			OnClose:    c.Close,
		})
	})
	t.Cleanup(reg.Close)
	handlers.Init(reg, nil, false)
	mux := chi.NewRouter()
	routes.SetupRoutes(mux)
	return &harness{t: t, backend: b, mux: mux, reg: reg}
}

// client carries one browser's cookie between requests.
type client struct {
	h      *harness
	cookie *http.Cookie
}

func (h *harness) client() *client { return &client{h: h} }

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.h.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.h.mux.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == handlers.ClientCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) state(rec *httptest.ResponseRecorder) app.Snapshot {
	c.h.t.Helper()
	var resp handlers.StateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		c.h.t.Fatalf("decode state: %v (%s)", err, rec.Body.String())
	}
	return resp.State
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) handlers.Response {
	t.Helper()
	var resp handlers.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestStateIssuesClientCookie(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	rec := c.do(http.MethodGet, "/api/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if c.cookie == nil || !c.cookie.HttpOnly {
		t.Fatalf("client cookie not issued: %+v", c.cookie)
	}
	if snap := c.state(rec); snap.View != view.Login {
		t.Fatalf("view = %s", snap.View)
	}

	c.do(http.MethodGet, "/api/state", nil)
	if h.reg.Len() != 1 {
		t.Fatalf("cookie must map to one workspace, have %d", h.reg.Len())
	}
	h.client().do(http.MethodGet, "/api/state", nil)
	if h.reg.Len() != 2 {
		t.Fatalf("new client must get its own workspace, have %d", h.reg.Len())
	}
}

func TestInviteQueryOpensRegister(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	snap := c.state(c.do(http.MethodGet, "/api/state?invite=XYZ", nil))
	if snap.View != view.Register || snap.PendingInvite != "XYZ" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap = c.state(c.do(http.MethodPost, "/api/view/login", nil))
	if snap.View != view.Login || snap.PendingInvite != "" {
		t.Fatalf("GoLogin must clear the invite, got %+v", snap)
	}
}

func TestLoginErrors(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	rec := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@b.co"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status %d", rec.Code)
	}
	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "a@b.co", "password": "wrong"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad credentials: status %d", rec.Code)
	}
	if resp := envelope(t, rec); resp.Success || resp.Message != "Invalid login credentials" {
		t.Fatalf("unexpected envelope %+v", resp)
	}

	h.backend.CreateAccount("banned@b.co", "password", gateway.Record{"is_banned": true})
	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "banned@b.co", "password": "password"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("banned: status %d", rec.Code)
	}
	snap := c.state(c.do(http.MethodGet, "/api/state", nil))
	if snap.UserID != "" || snap.Notice == "" {
		t.Fatalf("banned login must leave no session and a notice, got %+v", snap)
	}
	snap = c.state(c.do(http.MethodPost, "/api/notice/dismiss", nil))
	if snap.Notice != "" {
		t.Fatalf("notice not dismissed")
	}
}

func TestRegisterOnboardingFlow(t *testing.T) {
	h := newHarness(t)
	seed := h.backend.NewClient(localstore.NewMemory(0))
	defer seed.Close()
	inv, err := records.CreateInvite(context.Background(), seed, "vibes-abcde", "")
	if err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	c := h.client()
	c.do(http.MethodGet, "/api/state?invite="+inv.Token, nil)
	rec := c.do(http.MethodGet, "/api/invites/validate?code="+inv.Token, nil)
	var invResp handlers.InviteResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &invResp)
	if !invResp.Valid {
		t.Fatalf("invite should be valid: %s", rec.Body.String())
	}

	rec = c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ada", "email": "ada@vibes.dev", "password": "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if snap := c.state(rec); snap.View != view.Onboarding {
		t.Fatalf("view after register = %s", snap.View)
	}

	rec = c.do(http.MethodGet, "/api/invites/validate?code="+inv.Token, nil)
	invResp = handlers.InviteResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &invResp)
	if invResp.Valid {
		t.Fatalf("invite must be redeemed by registration")
	}

	snap := c.state(c.do(http.MethodPost, "/api/onboarding/complete", nil))
	if snap.View != view.App || snap.CurrentUser == nil || snap.CurrentUser.Name != "Ada" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	snap = c.state(c.do(http.MethodPost, "/api/auth/logout", nil))
	if snap.View != view.Login || snap.UserID != "" {
		t.Fatalf("unexpected snapshot after logout %+v", snap)
	}
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t)
	c := h.client()
	rec := c.do(http.MethodPost, "/api/auth/register", map[string]string{"name": "", "email": "nope", "password": "password"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestNavigationAndTheme(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	if rec := c.do(http.MethodPost, "/api/nav/tab", map[string]string{"tab": "videos"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tab: status %d", rec.Code)
	}
	snap := c.state(c.do(http.MethodPost, "/api/nav/tab", map[string]string{"tab": "glossary"}))
	if snap.ActiveTab != view.TabGlossary {
		t.Fatalf("tab = %s", snap.ActiveTab)
	}
	snap = c.state(c.do(http.MethodPost, "/api/assistant/ask", map[string]string{"prompt": "Explain vibes"}))
	if snap.ActiveTab != view.TabAssistant || snap.AssistantMessage != "Explain vibes" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	snap = c.state(c.do(http.MethodPost, "/api/assistant/handled", nil))
	if snap.AssistantMessage != "" {
		t.Fatalf("assistant seed not cleared")
	}

	if rec := c.do(http.MethodPost, "/api/nav/mode", map[string]string{"mode": "admin"}); rec.Code != http.StatusForbidden {
		t.Fatalf("admin mode for anonymous: status %d", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/api/nav/mode", map[string]string{"mode": "root"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode: status %d", rec.Code)
	}

	first := c.state(c.do(http.MethodPost, "/api/theme/toggle", nil)).Theme
	second := c.state(c.do(http.MethodPost, "/api/theme/toggle", nil)).Theme
	if first != "dark" || second != "light" {
		t.Fatalf("theme toggles = %s, %s", first, second)
	}
}

func TestContentEndpoints(t *testing.T) {
	h := newHarness(t)
	c := h.client()

	rec := c.do(http.MethodGet, "/api/content", nil)
	var all handlers.ContentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil || len(all.Content.Modules) == 0 {
		t.Fatalf("content = %s", rec.Body.String())
	}
	if rec := c.do(http.MethodGet, "/api/content/glossary", nil); rec.Code != http.StatusOK {
		t.Fatalf("glossary: status %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/content/videos", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown collection: status %d", rec.Code)
	}
	if rec := c.do(http.MethodPut, "/api/content/glossary", []map[string]string{{"id": "g", "term": "T", "definition": "D"}}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous publish: status %d", rec.Code)
	}

	lesson := all.Content.Modules[0].Lessons[0].ID
	if rec := c.do(http.MethodPost, "/api/lessons/"+lesson+"/toggle", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous toggle: status %d", rec.Code)
	}
	h.backend.CreateAccount("s@vibes.dev", "password", gateway.Record{"has_onboarded": true})
	c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "s@vibes.dev", "password": "password"})
	rec = c.do(http.MethodPost, "/api/lessons/"+lesson+"/toggle", nil)
	var lr handlers.LessonResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil || !lr.Completed || len(lr.CompletedLessons) != 1 {
		t.Fatalf("toggle = %s", rec.Body.String())
	}
	if rec := c.do(http.MethodPost, "/api/lessons/nope/toggle", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown lesson: status %d", rec.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	h := newHarness(t)
	h.backend.CreateAccount("admin@vibes.dev", "password", gateway.Record{"is_admin": true, "has_onboarded": true})
	studentID := h.backend.CreateAccount("s@vibes.dev", "password", gateway.Record{"has_onboarded": true})

	student := h.client()
	student.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "s@vibes.dev", "password": "password"})
	if rec := student.do(http.MethodGet, "/api/admin/students", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("student roster: status %d", rec.Code)
	}

	admin := h.client()
	snap := admin.state(admin.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@vibes.dev", "password": "password"}))
	if snap.Mode != view.ModeAdmin {
		t.Fatalf("admin mode not selected: %+v", snap)
	}

	rec := admin.do(http.MethodGet, "/api/admin/students", nil)
	var students handlers.StudentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil || len(students.Students) != 2 {
		t.Fatalf("students = %s", rec.Body.String())
	}

	rec = admin.do(http.MethodPost, "/api/admin/invites", map[string]int{"count": 3})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invites: %d %s", rec.Code, rec.Body.String())
	}
	var invites handlers.InvitesResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &invites)
	if len(invites.Created) != 3 || len(invites.Invites) != 3 || !strings.HasPrefix(invites.Created[0].Token, "vibes-") {
		t.Fatalf("invites = %s", rec.Body.String())
	}
	if rec := admin.do(http.MethodPost, "/api/admin/invites", map[string]int{"count": 51}); rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized batch: status %d", rec.Code)
	}

	rec = admin.do(http.MethodDelete, "/api/admin/invites/"+invites.Created[0].ID, nil)
	invites = handlers.InvitesResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &invites)
	if rec.Code != http.StatusOK || len(invites.Invites) != 2 {
		t.Fatalf("delete invite: %d %s", rec.Code, rec.Body.String())
	}

	if rec := admin.do(http.MethodPut, "/api/admin/students/no-such-user/ban", map[string]bool{"banned": true}); rec.Code != http.StatusNotFound {
		t.Fatalf("ban unknown student: status %d", rec.Code)
	}
	rec = admin.do(http.MethodPut, "/api/admin/students/"+studentID+"/ban", map[string]bool{"banned": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("ban: %d %s", rec.Code, rec.Body.String())
	}
	// the banned student's workspace is signed out by the profile update
	if snap := student.state(student.do(http.MethodGet, "/api/state", nil)); snap.UserID != "" {
		t.Fatalf("banned student still signed in: %+v", snap)
	}

	rec = admin.do(http.MethodPut, "/api/content/glossary", []map[string]string{{"id": "g", "term": "Vibe", "definition": "A feeling."}})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: %d %s", rec.Code, rec.Body.String())
	}
	if rec := admin.do(http.MethodPut, "/api/content/glossary", []map[string]string{{"term": "no id"}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid publish: status %d", rec.Code)
	}
	if rec := admin.do(http.MethodPost, "/api/admin/refresh", nil); rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d", rec.Code)
	}

	// edits stay local until published
	rec = admin.do(http.MethodPatch, "/api/content/stages", []map[string]string{{"id": "draft", "title": "Draft stage"}})
	var edited handlers.CollectionResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &edited)
	if rec.Code != http.StatusOK || edited.Name != "stages" {
		t.Fatalf("edit: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(admin.do(http.MethodGet, "/api/content/stages", nil).Body.String(), "Draft stage") {
		t.Fatalf("edited collection not visible to the editor")
	}
	stored, err := records.FetchAppContent[map[string]any](context.Background(), h.backend.NewClient(localstore.NewMemory(0)), "stages")
	if err != nil || len(stored) != 0 {
		t.Fatalf("edit reached the backend: %v %v", stored, err)
	}
	if rec := student.do(http.MethodPatch, "/api/content/stages", []map[string]string{{"id": "x", "title": "x"}}); rec.Code != http.StatusUnauthorized && rec.Code != http.StatusForbidden {
		t.Fatalf("student edit: status %d", rec.Code)
	}
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	h.backend.CreateAccount("s@vibes.dev", "password", gateway.Record{"has_onboarded": true})
	c := h.client()
	c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "s@vibes.dev", "password": "password"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "my notes.txt")
	fw.Write([]byte("hello"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := c.send(req)

	var resp handlers.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || !resp.Success {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(resp.URL, backendURL+"/storage/v1/object/public/uploads/") || !strings.HasSuffix(resp.URL, "-my_notes.txt") {
		t.Fatalf("url = %s", resp.URL)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "text/plain")
	if rec := c.send(req); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart upload: status %d", rec.Code)
	}
}

func TestStateWebSocket(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.mux)
	defer srv.Close()

	c := h.client()
	c.do(http.MethodGet, "/api/state", nil)

	header := http.Header{}
	header.Add("Cookie", handlers.ClientCookie+"="+c.cookie.Value)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/state", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var msg handlers.StateMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "state" || msg.State.View != view.Login {
		t.Fatalf("first frame = %+v %v", msg, err)
	}

	c.do(http.MethodPost, "/api/nav/tab", map[string]string{"tab": "roadmaps"})
	for i := 0; i < 5; i++ {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.State.ActiveTab == view.TabRoadmaps {
			return
		}
	}
	t.Fatalf("tab change never streamed")
}
