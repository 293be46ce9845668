package prefs

import (
	"context"
	"testing"

	"github.com/AnshRaj112/vibes-platform/internal/localstore"
)

func TestToggleRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory(0)
	p := LoadTheme(ctx, store)
	if p.Theme() != Light {
		t.Fatalf("default theme = %s", p.Theme())
	}

	for _, want := range []Theme{Dark, Light} {
		got, err := p.Toggle(ctx)
		if err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		stored, _, _ := store.Get(ctx, localstore.KeyTheme)
		if got != want || stored != string(want) {
			t.Fatalf("after toggle: theme %s stored %q, want %s", got, stored, want)
		}
	}
}

func TestLoadThemeIgnoresUnknownValue(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemory(0)
	_ = store.Set(ctx, localstore.KeyTheme, "dark")
	if LoadTheme(ctx, store).Theme() != Dark {
		t.Fatalf("stored dark theme not loaded")
	}
	_ = store.Set(ctx, localstore.KeyTheme, "sepia")
	if LoadTheme(ctx, store).Theme() != Light {
		t.Fatalf("unknown theme must fall back to light")
	}
}
