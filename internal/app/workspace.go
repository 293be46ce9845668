// Package app composes one client's session, content, admin data, router and
// theme into a Workspace, and keeps one Workspace per client in a Registry.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/vibes-platform/internal/admindata"
	"github.com/AnshRaj112/vibes-platform/internal/content"
	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/models"
	"github.com/AnshRaj112/vibes-platform/internal/prefs"
	"github.com/AnshRaj112/vibes-platform/internal/records"
	"github.com/AnshRaj112/vibes-platform/internal/session"
	"github.com/AnshRaj112/vibes-platform/internal/view"
)

var (
	ErrNotSignedIn    = errors.New("not signed in")
	ErrForbidden      = errors.New("admin access required")
	ErrInvalidCount   = errors.New("invite count must be between 1 and 50")
	ErrEmptyUpload    = errors.New("upload is empty")
	ErrUnknownLesson  = errors.New("unknown lesson")
	ErrUnknownStudent = errors.New("unknown student")
	ErrModeNotAllowed = errors.New("admin mode requires an admin account")
)

// MaxInvitesPerBatch bounds GenerateInvites.
const MaxInvitesPerBatch = 50

// InviteTokenPrefix starts every generated invite token.
const InviteTokenPrefix = "vibes-"

// Deps are a Workspace's collaborators.
type Deps struct {
	Gateway    gateway.Gateway
	Store      localstore.Store
	Logger     logger.Logger
	BackendURL string
	// InviteCode is the invite query parameter of the client's first request.
	InviteCode string
	// OnClose releases per-client resources such as the gateway client.
	OnClose func()
}

// Snapshot is the complete serialisable state of a Workspace.
type Snapshot struct {
	View             view.View       `json:"view"`
	ActiveTab        view.Tab        `json:"activeTab"`
	Page             view.Tab        `json:"page"`
	Mode             view.Mode       `json:"mode"`
	Theme            prefs.Theme     `json:"theme"`
	Loading          bool            `json:"loading"`
	ContentLoading   bool            `json:"contentLoading"`
	UserID           string          `json:"userId,omitempty"`
	Email            string          `json:"email,omitempty"`
	IsAdmin          bool            `json:"isAdmin"`
	Profile          *models.Profile `json:"profile"`
	CurrentUser      *models.Student `json:"currentUser"`
	CompletedLessons []string        `json:"completedLessons"`
	Notice           string          `json:"notice,omitempty"`
	PendingInvite    string          `json:"pendingInvite,omitempty"`
	AssistantMessage string          `json:"assistantMessage,omitempty"`
}

// Workspace is one client's application state.
type Workspace struct {
	ID string

	Session *session.Manager
	Content *content.Hydrator
	Admin   *admindata.Loader
	Router  *view.Router
	Theme   *prefs.ThemePref

	gw      gateway.Gateway
	log     logger.Logger
	onClose func()

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	completed    []string
	progressUser string
	wasAdmin     bool
	observers    map[int]func(Snapshot)
	nextID       int
	closed       bool
}

// Open builds a workspace and runs the startup loads: session initialization
// and content hydration run concurrently, and Open returns when both are done.
func Open(ctx context.Context, id string, deps Deps) (*Workspace, error) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop{}
	}
	hydrator, err := content.New(deps.Gateway, log)
	if err != nil {
		return nil, fmt.Errorf("content defaults: %w", err)
	}
	wctx, cancel := context.WithCancel(context.Background())
	w := &Workspace{
		ID:        id,
		Session:   session.NewManager(deps.Gateway, deps.Store, session.Options{BackendURL: deps.BackendURL, Logger: log}),
		Content:   hydrator,
		Admin:     admindata.NewLoader(deps.Gateway, log),
		Router:    view.NewRouter(deps.InviteCode),
		Theme:     prefs.LoadTheme(ctx, deps.Store),
		gw:        deps.Gateway,
		log:       log,
		onClose:   deps.OnClose,
		ctx:       wctx,
		cancel:    cancel,
		completed: []string{},
		observers: make(map[int]func(Snapshot)),
	}
	w.Session.Subscribe(w.onSession)
	w.Content.OnChange(w.notify)
	w.Admin.OnChange(w.notify)

	var g errgroup.Group
	g.Go(func() error {
		w.Session.Initialize(wctx)
		return nil
	})
	g.Go(func() error {
		w.Content.Load(wctx)
		return nil
	})
	_ = g.Wait()
	return w, nil
}

// Close cancels every load still running for the workspace. Later results are
// dropped.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.observers = map[int]func(Snapshot){}
	w.mu.Unlock()

	w.cancel()
	w.Session.Close()
	if w.onClose != nil {
		w.onClose()
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (w *Workspace) Subscribe(fn func(Snapshot)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.observers[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.observers, id)
		w.mu.Unlock()
	}
}

func (w *Workspace) notify() {
	if w.ctx.Err() != nil {
		return
	}
	snap := w.Snapshot()
	w.mu.Lock()
	fns := make([]func(Snapshot), 0, len(w.observers))
	for _, fn := range w.observers {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// onSession derives everything that depends on the session: the view, the
// sidebar mode, the admin data and the user's progress.
func (w *Workspace) onSession(st session.State) {
	if w.ctx.Err() != nil {
		return
	}
	w.Router.Update(view.Inputs{
		Loading:    st.Loading,
		HasSession: st.Session != nil,
		HasProfile: st.Profile != nil,
		Onboarded:  st.Profile != nil && st.Profile.HasOnboarded,
	})

	admin := st.IsAdmin()
	w.mu.Lock()
	adminChanged := admin != w.wasAdmin
	w.wasAdmin = admin
	w.mu.Unlock()
	if adminChanged {
		if admin {
			w.Router.SetMode(view.ModeAdmin)
		} else {
			w.Router.SetMode(view.ModeStudent)
		}
	}
	w.Admin.SetAdmin(w.ctx, admin)

	switch {
	case st.Session == nil:
		w.mu.Lock()
		w.completed = []string{}
		w.progressUser = ""
		w.mu.Unlock()
	case !st.Loading:
		w.loadProgress(st.Session.UserID)
	}
	w.notify()
}

func (w *Workspace) loadProgress(userID string) {
	w.mu.Lock()
	if w.progressUser == userID {
		w.mu.Unlock()
		return
	}
	w.progressUser = userID
	w.mu.Unlock()

	ids, err := records.FetchUserProgress(w.ctx, w.gw, userID)
	if err != nil {
		w.log.Error("failed to load progress", err)
		return
	}
	w.mu.Lock()
	if w.progressUser == userID {
		w.completed = ids
	}
	w.mu.Unlock()
}

func (w *Workspace) currentSession() (*gateway.Session, error) {
	s := w.Session.State().Session
	if s == nil {
		return nil, ErrNotSignedIn
	}
	return s, nil
}

func (w *Workspace) requireAdmin() (session.State, error) {
	st := w.Session.State()
	if st.Session == nil {
		return st, ErrNotSignedIn
	}
	if !st.IsAdmin() {
		return st, ErrForbidden
	}
	return st, nil
}

// CompletedLessons returns the ids of the user's completed lessons.
func (w *Workspace) CompletedLessons() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := append(make([]string, 0, len(w.completed)), w.completed...)
	sort.Strings(out)
	return out
}

// ToggleLesson flips a lesson's completion. The local state changes first; a
// failure to persist is logged and not rolled back.
func (w *Workspace) ToggleLesson(ctx context.Context, lessonID string) (bool, error) {
	s, err := w.currentSession()
	if err != nil {
		return false, err
	}
	known := false
	for _, id := range w.Content.LessonIDs() {
		if id == lessonID {
			known = true
			break
		}
	}
	if !known {
		return false, fmt.Errorf("%w: %q", ErrUnknownLesson, lessonID)
	}

	w.mu.Lock()
	complete := true
	kept := make([]string, 0, len(w.completed)+1)
	for _, id := range w.completed {
		if id == lessonID {
			complete = false
			continue
		}
		kept = append(kept, id)
	}
	if complete {
		kept = append(kept, lessonID)
	}
	w.completed = kept
	w.mu.Unlock()
	w.notify()

	if err := records.SetLessonComplete(ctx, w.gw, s.UserID, lessonID, complete); err != nil {
		w.log.Error("failed to save progress", err)
	}
	return complete, nil
}

// CurrentUser derives the Student view model of the signed-in user.
func (w *Workspace) CurrentUser() *models.Student {
	p := w.Session.State().Profile
	if p == nil {
		return nil
	}
	w.mu.Lock()
	done := len(w.completed)
	w.mu.Unlock()
	s := models.NewStudent(*p, done)
	return &s
}

// GenerateInvites creates count invites and refreshes the admin data. The first
// failure is returned; invites created before it are kept.
func (w *Workspace) GenerateInvites(ctx context.Context, count int) ([]models.Invite, error) {
	st, err := w.requireAdmin()
	if err != nil {
		return nil, err
	}
	if count < 1 || count > MaxInvitesPerBatch {
		return nil, ErrInvalidCount
	}
	created := make([]models.Invite, 0, count)
	for i := 0; i < count; i++ {
		token, err := newInviteToken()
		if err != nil {
			return created, err
		}
		inv, err := records.CreateInvite(ctx, w.gw, token, st.Profile.ID)
		if err != nil {
			return created, err
		}
		created = append(created, inv)
	}
	_ = w.Admin.Refresh(ctx)
	return created, nil
}

// DeleteInvite deletes an invite and drops it from the admin data.
func (w *Workspace) DeleteInvite(ctx context.Context, id string) error {
	if _, err := w.requireAdmin(); err != nil {
		return err
	}
	if err := records.DeleteInvite(ctx, w.gw, id); err != nil {
		return err
	}
	w.Admin.RemoveInvite(id)
	return nil
}

// SetStudentBanned sets a student's ban flag and refreshes the roster.
func (w *Workspace) SetStudentBanned(ctx context.Context, id string, banned bool) error {
	if _, err := w.requireAdmin(); err != nil {
		return err
	}
	p, err := records.FetchProfile(ctx, w.gw, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownStudent, id)
	}
	if err := records.SetBanned(ctx, w.gw, id, banned); err != nil {
		return err
	}
	_ = w.Admin.Refresh(ctx)
	return nil
}

// RefreshAdmin reloads the roster and invites.
func (w *Workspace) RefreshAdmin(ctx context.Context) error {
	if _, err := w.requireAdmin(); err != nil {
		return err
	}
	return w.Admin.Refresh(ctx)
}

// AdminData returns the loaded roster and invites.
func (w *Workspace) AdminData() (admindata.Snapshot, error) {
	if _, err := w.requireAdmin(); err != nil {
		return admindata.Snapshot{}, err
	}
	return w.Admin.Snapshot(), nil
}

// PublishContent replaces a content collection in the backend and locally.
func (w *Workspace) PublishContent(ctx context.Context, name content.Name, data []byte) error {
	if _, err := w.requireAdmin(); err != nil {
		return err
	}
	return w.Content.PublishJSON(ctx, name, data)
}

// EditContent replaces a collection in this workspace only. Nothing is
// written to the backend until the collection is published.
func (w *Workspace) EditContent(name content.Name, data []byte) error {
	if _, err := w.requireAdmin(); err != nil {
		return err
	}
	return w.Content.SetJSON(name, data)
}

// SetMode switches the sidebar mode.
func (w *Workspace) SetMode(m view.Mode) error {
	switch m {
	case view.ModeStudent:
	case view.ModeAdmin:
		if !w.Session.State().IsAdmin() {
			return ErrModeNotAllowed
		}
	default:
		return fmt.Errorf("%w: %q", view.ErrUnknownMode, m)
	}
	w.Router.SetMode(m)
	w.notify()
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// UploadFile stores a file under the user's upload folder and returns its
// public URL.
func (w *Workspace) UploadFile(ctx context.Context, data []byte, name string) (string, error) {
	s, err := w.currentSession()
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	base := unsafeFileChars.ReplaceAllString(path.Base(name), "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	dest := path.Join("uploads", s.UserID, uuid.New().String()+"-"+base)
	return w.gw.UploadFile(ctx, data, dest)
}

// Snapshot returns the workspace state.
func (w *Workspace) Snapshot() Snapshot {
	st := w.Session.State()
	rt := w.Router.State()
	user := w.CurrentUser()
	snap := Snapshot{
		View:             rt.View,
		ActiveTab:        rt.Tab,
		Page:             view.Page(rt.Tab, rt.Mode, user != nil),
		Mode:             rt.Mode,
		Theme:            w.Theme.Theme(),
		Loading:          st.Loading,
		ContentLoading:   w.Content.Loading(),
		IsAdmin:          st.IsAdmin(),
		Profile:          st.Profile,
		CurrentUser:      user,
		CompletedLessons: w.CompletedLessons(),
		Notice:           st.Notice,
		PendingInvite:    rt.PendingInvite,
		AssistantMessage: rt.AssistantMessage,
	}
	if st.Session != nil {
		snap.UserID = st.Session.UserID
		snap.Email = st.Session.Email
	}
	return snap
}

// Changed notifies subscribers after a direct change to the router or theme.
func (w *Workspace) Changed() { w.notify() }

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func newInviteToken() (string, error) {
	var b strings.Builder
	b.WriteString(InviteTokenPrefix)
	for i := 0; i < 5; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36))))
		if err != nil {
			return "", err
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String(), nil
}
