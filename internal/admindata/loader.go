// Package admindata loads the admin-only student roster and invite list.
package admindata

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
	"github.com/AnshRaj112/vibes-platform/internal/models"
	"github.com/AnshRaj112/vibes-platform/internal/records"
)

// Snapshot is the loaded admin data.
type Snapshot struct {
	Students []models.Student `json:"students"`
	Invites  []models.Invite  `json:"invites"`
	Loading  bool             `json:"loading"`
}

// Loader fetches the roster and invites when the session becomes admin. Data is
// kept when the admin flag drops again.
type Loader struct {
	gw  gateway.Gateway
	log logger.Logger

	mu        sync.Mutex
	admin     bool
	students  []models.Student
	invites   []models.Invite
	loading   int
	loads     int
	observers []func()
}

func NewLoader(gw gateway.Gateway, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop{}
	}
	return &Loader{gw: gw, log: log, students: []models.Student{}, invites: []models.Invite{}}
}

// OnChange registers fn to run after every change.
func (l *Loader) OnChange(fn func()) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

func (l *Loader) changed() {
	l.mu.Lock()
	fns := append([]func(){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetAdmin records the session's admin flag. Only a transition to true loads.
func (l *Loader) SetAdmin(ctx context.Context, admin bool) {
	l.mu.Lock()
	becameAdmin := admin && !l.admin
	l.admin = admin
	l.mu.Unlock()
	if becameAdmin {
		_ = l.Refresh(ctx)
	}
}

// Refresh fetches the roster and invite list concurrently. Both are replaced
// only when both fetches succeed; on failure the previous data stays and the
// error is logged and returned.
func (l *Loader) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.loading++
	l.loads++
	l.mu.Unlock()
	l.changed()

	var (
		students []models.Student
		invites  []models.Invite
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = records.FetchAllStudents(gctx, l.gw)
		return err
	})
	g.Go(func() error {
		var err error
		invites, err = records.ListInvites(gctx, l.gw)
		return err
	})
	err := g.Wait()
	metrics.ObserveAdminLoad(err)

	l.mu.Lock()
	l.loading--
	if err == nil {
		l.students = students
		l.invites = invites
	}
	l.mu.Unlock()
	if err != nil {
		l.log.Error("failed to load admin data", err)
	}
	l.changed()
	return err
}

// RemoveInvite drops an invite locally after it was deleted in the backend.
func (l *Loader) RemoveInvite(id string) {
	l.mu.Lock()
	kept := make([]models.Invite, 0, len(l.invites))
	for _, inv := range l.invites {
		if inv.ID != id {
			kept = append(kept, inv)
		}
	}
	l.invites = kept
	l.mu.Unlock()
	l.changed()
}

// Loads returns how many fetches have been started.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Students: append(make([]models.Student, 0, len(l.students)), l.students...),
		Invites:  append(make([]models.Invite, 0, len(l.invites)), l.invites...),
		Loading:  l.loading > 0,
	}
}
