// Package session mirrors the backend's authentication state into a local
// State: the current session, the user's profile and the loading flag. It
// applies the ban veto and the one-shot storage quota recovery on login.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/localstore"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
	"github.com/AnshRaj112/vibes-platform/internal/models"
	"github.com/AnshRaj112/vibes-platform/internal/records"
)

// Options configures a Manager.
type Options struct {
	// BackendURL is checked before every login. Empty or placeholder values
	// fail with ErrConfiguration.
	BackendURL string
	Logger     logger.Logger
}

// Manager owns the session State of one client. Gateway calls are never made
// while mu is held: the gateway delivers notifications synchronously and they
// re-enter the manager.
type Manager struct {
	gw         gateway.Gateway
	store      localstore.Store
	log        logger.Logger
	backendURL string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	generation  uint64
	seq         uint64
	delivering  bool
	observers   map[int]func(State)
	nextID      int
	unsubscribe func()
}

// NewManager creates a manager in the loading state. Call Initialize to read
// the current session and subscribe to changes.
func NewManager(gw gateway.Gateway, store localstore.Store, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		gw:         gw,
		store:      store,
		log:        log,
		backendURL: opts.BackendURL,
		ctx:        ctx,
		cancel:     cancel,
		state:      State{Loading: true},
		observers:  make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to receive every new State. It returns the
// unsubscribe function.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Close stops listening to the gateway. Results of fetches still in flight are
// dropped.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// dispatch applies a to the state and notifies observers. When gen is non-zero
// the action is dropped if a newer session has been seen since.
//
// Only one goroutine delivers at a time. A dispatch that arrives while another
// delivery is running, including one made from inside an observer, leaves its
// state to that delivery, which keeps going until observers have seen the
// latest state. Observers may therefore skip intermediate states but never end
// on a stale one.
func (m *Manager) dispatch(gen uint64, a action) {
	if m.ctx.Err() != nil {
		return
	}
	m.mu.Lock()
	if gen != 0 && gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.state = reduce(m.state, a)
	m.seq++
	if m.delivering {
		m.mu.Unlock()
		return
	}
	m.delivering = true
	m.mu.Unlock()
	m.deliver()
}

func (m *Manager) deliver() {
	var sent uint64
	for {
		m.mu.Lock()
		if sent == m.seq || m.ctx.Err() != nil {
			m.delivering = false
			m.mu.Unlock()
			return
		}
		sent = m.seq
		snapshot := m.state
		fns := make([]func(State), 0, len(m.observers))
		for _, fn := range m.observers {
			fns = append(fns, fn)
		}
		m.mu.Unlock()

		for _, fn := range fns {
			fn(snapshot)
		}
	}
}

// replaceSession installs s and returns the generation its profile fetch
// belongs to.
func (m *Manager) replaceSession(s *gateway.Session) uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()
	m.dispatch(gen, action{kind: actSession, session: s})
	return gen
}

// Initialize reads the current session and subscribes to session changes for
// the manager's lifetime. It returns once loading has cleared.
func (m *Manager) Initialize(ctx context.Context) {
	unsubscribe := m.gw.OnSessionChange(m.onSessionChange)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	s, err := m.gw.CurrentSession(ctx)
	if err != nil {
		m.log.Error("reading current session failed", err)
		s = nil
	}
	m.handleSession(ctx, s)
}

func (m *Manager) onSessionChange(event gateway.Event, s *gateway.Session) {
	metrics.ObserveSessionEvent(string(event))
	m.log.Debug("session change", event)
	m.handleSession(m.ctx, s)
}

func (m *Manager) handleSession(ctx context.Context, s *gateway.Session) {
	gen := m.replaceSession(s)
	if s == nil {
		m.dispatch(gen, action{kind: actLoaded})
		return
	}
	m.fetchProfile(ctx, gen, s.UserID)
}

// fetchProfile loads the profile for the session of generation gen. Errors are
// logged and loading still clears.
func (m *Manager) fetchProfile(ctx context.Context, gen uint64, userID string) {
	p, err := records.FetchProfile(ctx, m.gw, userID)
	if err != nil {
		m.log.Error("profile fetch error", err)
		m.dispatch(gen, action{kind: actLoaded})
		return
	}
	if p != nil && p.IsBanned {
		m.veto(ctx, gen)
		return
	}
	m.dispatch(gen, action{kind: actProfile, profile: p})
}

// veto signs a banned user out and raises the blocking notice.
func (m *Manager) veto(ctx context.Context, gen uint64) {
	m.mu.Lock()
	current := gen == m.generation
	m.mu.Unlock()
	if !current {
		return
	}
	m.log.Warn("banned account signed in, forcing sign-out")
	if err := m.gw.SignOut(ctx); err != nil {
		m.log.Error("sign-out after ban failed", err)
	}
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
	m.dispatch(0, action{kind: actBanned})
}

func (m *Manager) configured() bool {
	return m.backendURL != "" && !strings.Contains(m.backendURL, "placeholder")
}

// Login signs in with email and password. A storage quota failure triggers one
// recovery: the local store is cleared (keeping the theme) and the sign-in is
// retried once.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if !m.configured() {
		return ErrConfiguration
	}
	m.dispatch(0, action{kind: actDismissNotice})

	_, err := m.gw.SignIn(ctx, email, password)
	if err != nil {
		if !IsQuotaError(err) {
			return err
		}
		m.log.Warn("storage quota exceeded, clearing local state and retrying sign-in", err)
		if err := m.clearLocalState(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrStorageQuota, err)
		}
		if _, err := m.gw.SignIn(ctx, email, password); err != nil {
			return fmt.Errorf("%w: %w", ErrStorageQuota, err)
		}
	}

	if st := m.State(); st.Session == nil && st.Notice == BannedNotice {
		return ErrBanned
	}
	return nil
}

// clearLocalState empties the local store but keeps the theme preference.
func (m *Manager) clearLocalState(ctx context.Context) error {
	theme, hasTheme, err := m.store.Get(ctx, localstore.KeyTheme)
	if err != nil {
		return err
	}
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	if hasTheme {
		return m.store.Set(ctx, localstore.KeyTheme, theme)
	}
	return nil
}

// Register creates the account with display name and avatar metadata, then
// redeems inviteCode when one is given. The profile row is created by the
// backend.
func (m *Manager) Register(ctx context.Context, data models.RegisterData, inviteCode string) error {
	if err := records.Validate("registration", data); err != nil {
		return err
	}
	meta := map[string]any{
		"full_name":  data.Name,
		"avatar_url": data.Avatar,
	}
	if _, err := m.gw.SignUp(ctx, data.Email, data.Password, meta); err != nil {
		return err
	}
	if inviteCode != "" {
		if err := records.UseInvite(ctx, m.gw, inviteCode, data.Email); err != nil {
			m.log.Error("redeeming invite failed", err)
		}
	}
	return nil
}

// Logout signs out and clears the local session even when the backend call
// fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.gw.SignOut(ctx)
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
	m.dispatch(0, action{kind: actSignedOut})
	return err
}

// CompleteOnboarding marks onboarding done for the current user and re-fetches
// the profile. Without a session it does nothing.
func (m *Manager) CompleteOnboarding(ctx context.Context) error {
	m.mu.Lock()
	s := m.state.Session
	gen := m.generation
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	if err := records.CompleteOnboarding(ctx, m.gw, s.UserID); err != nil {
		return err
	}
	m.mu.Lock()
	if m.state.Session != nil && m.state.Session.UserID == s.UserID {
		gen = m.generation
	}
	m.mu.Unlock()
	m.fetchProfile(ctx, gen, s.UserID)
	return nil
}

// ValidateInvite looks up an active invite. It never changes state.
func (m *Manager) ValidateInvite(ctx context.Context, code string) (*models.Invite, error) {
	return records.CheckInvite(ctx, m.gw, code)
}

// DismissNotice clears the blocking notice.
func (m *Manager) DismissNotice() {
	m.dispatch(0, action{kind: actDismissNotice})
}
