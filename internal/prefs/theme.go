// Package prefs holds the client's persisted UI preferences.
package prefs

import (
	"context"
	"sync"

	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

// Theme is the colour scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// DefaultTheme is used when nothing valid is stored.
const DefaultTheme = Light

// ThemePref is the theme preference backed by the local store. The stored
// value is read once, at construction, and written on every change.
type ThemePref struct {
	store localstore.Store

	mu    sync.Mutex
	theme Theme
}

// LoadTheme reads the stored theme. Read errors fall back to the default.
func LoadTheme(ctx context.Context, store localstore.Store) *ThemePref {
	p := &ThemePref{store: store, theme: DefaultTheme}
	if v, ok, err := store.Get(ctx, localstore.KeyTheme); err == nil && ok {
		switch Theme(v) {
		case Light, Dark:
			p.theme = Theme(v)
		}
	}
	return p
}

func (p *ThemePref) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Toggle flips the theme and persists it. The in-memory value changes even
// when the write fails; the error is returned.
func (p *ThemePref) Toggle(ctx context.Context) (Theme, error) {
	p.mu.Lock()
	if p.theme == Dark {
		p.theme = Light
	} else {
		p.theme = Dark
	}
	t := p.theme
	p.mu.Unlock()
	return t, p.store.Set(ctx, localstore.KeyTheme, string(t))
}
