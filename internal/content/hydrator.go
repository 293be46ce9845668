// Package content holds the seven course content collections. Each starts as
// its bundled default and is overlaid by the backend copy when one exists.
package content

import (
	"context"
	"embed"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
	"github.com/AnshRaj112/vibes-platform/internal/models"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

// Name identifies a collection. It is also the backend record key.
type Name string

const (
	Modules          Name = "modules"
	Prompts          Name = "prompts"
	PromptCategories Name = "promptCategories"
	Roadmaps         Name = "roadmaps"
	Styles           Name = "styles"
	Glossary         Name = "glossary"
	Stages           Name = "stages"
)

// Names lists every collection in load order.
var Names = []Name{Modules, Prompts, PromptCategories, Roadmaps, Styles, Glossary, Stages}

// ErrUnknownCollection is returned for a name outside Names.
var ErrUnknownCollection = errors.New("content: unknown collection")

// Snapshot is every collection at one point in time.
type Snapshot struct {
	Modules          []models.CourseModule   `json:"modules"`
	Prompts          []models.PromptItem     `json:"prompts"`
	PromptCategories []models.PromptCategory `json:"promptCategories"`
	Roadmaps         []models.Roadmap        `json:"roadmaps"`
	Styles           []models.StyleCard      `json:"styles"`
	Glossary         []models.GlossaryTerm   `json:"glossary"`
	Stages           []models.DashboardStage `json:"stages"`
	Loading          bool                    `json:"loading"`
}

// Hydrator owns the collections of one client.
type Hydrator struct {
	Modules          *Collection[models.CourseModule]
	Prompts          *Collection[models.PromptItem]
	PromptCategories *Collection[models.PromptCategory]
	Roadmaps         *Collection[models.Roadmap]
	Styles           *Collection[models.StyleCard]
	Glossary         *Collection[models.GlossaryTerm]
	Stages           *Collection[models.DashboardStage]

	gw     gateway.Gateway
	log    logger.Logger
	byName map[Name]collection

	mu        sync.Mutex
	loading   bool
	observers []func()
}

// New seeds every collection with its bundled default.
func New(gw gateway.Gateway, log logger.Logger) (*Hydrator, error) {
	if log == nil {
		log = logger.Nop{}
	}
	h := &Hydrator{gw: gw, log: log, loading: true}
	var err error
	if h.Modules, err = newCollection[models.CourseModule](Modules); err != nil {
		return nil, err
	}
	if h.Prompts, err = newCollection[models.PromptItem](Prompts); err != nil {
		return nil, err
	}
	if h.PromptCategories, err = newCollection[models.PromptCategory](PromptCategories); err != nil {
		return nil, err
	}
	if h.Roadmaps, err = newCollection[models.Roadmap](Roadmaps); err != nil {
		return nil, err
	}
	if h.Styles, err = newCollection[models.StyleCard](Styles); err != nil {
		return nil, err
	}
	if h.Glossary, err = newCollection[models.GlossaryTerm](Glossary); err != nil {
		return nil, err
	}
	if h.Stages, err = newCollection[models.DashboardStage](Stages); err != nil {
		return nil, err
	}
	h.byName = map[Name]collection{
		Modules:          h.Modules,
		Prompts:          h.Prompts,
		PromptCategories: h.PromptCategories,
		Roadmaps:         h.Roadmaps,
		Styles:           h.Styles,
		Glossary:         h.Glossary,
		Stages:           h.Stages,
	}
	return h, nil
}

// OnChange registers fn to run after every load or edit.
func (h *Hydrator) OnChange(fn func()) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	h.mu.Unlock()
}

func (h *Hydrator) changed() {
	h.mu.Lock()
	fns := append([]func(){}, h.observers...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Loading reports whether a load is in progress.
func (h *Hydrator) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

func (h *Hydrator) setLoading(v bool) {
	h.mu.Lock()
	h.loading = v
	h.mu.Unlock()
}

// Load fetches every collection concurrently. Each collection applies its own
// result independently; failures are logged and never returned. Calling Load
// again repeats the same replace-or-default logic.
func (h *Hydrator) Load(ctx context.Context) {
	h.setLoading(true)
	h.changed()

	var g errgroup.Group
	for _, name := range Names {
		c := h.byName[name]
		g.Go(func() error {
			outcome, err := c.hydrate(ctx, h.gw)
			if err != nil {
				h.log.Error("failed to load app content", c.Name(), err)
				return nil
			}
			h.log.Debug("content hydrated", c.Name(), outcome)
			return nil
		})
	}
	_ = g.Wait()

	h.setLoading(false)
	h.changed()
}

// Get returns a copy of the named collection.
func (h *Hydrator) Get(name Name) (any, error) {
	c, ok := h.byName[name]
	if !ok {
		return nil, ErrUnknownCollection
	}
	return c.value(), nil
}

// SetJSON replaces a collection locally from its JSON form.
func (h *Hydrator) SetJSON(name Name, data []byte) error {
	c, ok := h.byName[name]
	if !ok {
		return ErrUnknownCollection
	}
	if err := c.setJSON(data); err != nil {
		return err
	}
	h.changed()
	return nil
}

// PublishJSON validates a collection, stores it in the backend and replaces it
// locally.
func (h *Hydrator) PublishJSON(ctx context.Context, name Name, data []byte) error {
	c, ok := h.byName[name]
	if !ok {
		return ErrUnknownCollection
	}
	if err := c.publishJSON(ctx, h.gw, data); err != nil {
		return err
	}
	h.changed()
	return nil
}

// Snapshot returns every collection.
func (h *Hydrator) Snapshot() Snapshot {
	return Snapshot{
		Modules:          h.Modules.Items(),
		Prompts:          h.Prompts.Items(),
		PromptCategories: h.PromptCategories.Items(),
		Roadmaps:         h.Roadmaps.Items(),
		Styles:           h.Styles.Items(),
		Glossary:         h.Glossary.Items(),
		Stages:           h.Stages.Items(),
		Loading:          h.Loading(),
	}
}

// LessonIDs returns every lesson id of the current modules.
func (h *Hydrator) LessonIDs() []string {
	var ids []string
	for _, m := range h.Modules.Items() {
		for _, l := range m.Lessons {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
