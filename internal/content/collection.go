package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/metrics"
	"github.com/AnshRaj112/vibes-platform/internal/records"
)

// collection is the type-erased view of a Collection used by the Hydrator.
type collection interface {
	Name() Name
	hydrate(ctx context.Context, gw gateway.Gateway) (string, error)
	value() any
	setJSON(data []byte) error
	publishJSON(ctx context.Context, gw gateway.Gateway, data []byte) error
}

// Collection is one content sequence. It always holds either its bundled
// default or the latest non-empty backend copy, never a mix of both.
type Collection[T any] struct {
	name     Name
	defaults []T

	mu    sync.RWMutex
	items []T
}

func newCollection[T any](name Name) (*Collection[T], error) {
	data, err := defaultsFS.ReadFile("defaults/" + string(name) + ".json")
	if err != nil {
		return nil, fmt.Errorf("read bundled %s: %w", name, err)
	}
	var defaults []T
	if err := json.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parse bundled %s: %w", name, err)
	}
	if err := records.Validate("defaults."+string(name), defaults); err != nil {
		return nil, err
	}
	return &Collection[T]{name: name, defaults: defaults, items: defaults}, nil
}

func (c *Collection[T]) Name() Name { return c.name }

// Items returns a copy of the current sequence.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Defaults returns a copy of the bundled sequence.
func (c *Collection[T]) Defaults() []T {
	return append([]T(nil), c.defaults...)
}

// Set replaces the sequence wholesale.
func (c *Collection[T]) Set(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.mu.Unlock()
}

// Reset restores the bundled default.
func (c *Collection[T]) Reset() {
	c.Set(c.defaults)
}

func (c *Collection[T]) value() any { return c.Items() }

// hydrate fetches the backend copy. A non-empty result replaces the sequence,
// an empty or missing one restores the default and a failure changes nothing.
func (c *Collection[T]) hydrate(ctx context.Context, gw gateway.Gateway) (string, error) {
	items, err := records.FetchAppContent[T](ctx, gw, string(c.name))
	if err != nil {
		metrics.ObserveHydration(string(c.name), metrics.OutcomeFailed)
		return metrics.OutcomeFailed, err
	}
	if len(items) == 0 {
		c.Reset()
		metrics.ObserveHydration(string(c.name), metrics.OutcomeDefault)
		return metrics.OutcomeDefault, nil
	}
	c.Set(items)
	metrics.ObserveHydration(string(c.name), metrics.OutcomeBackend)
	return metrics.OutcomeBackend, nil
}

func (c *Collection[T]) decode(data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &records.ValidationError{Table: string(c.name), Err: err}
	}
	if err := records.Validate(string(c.name), items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Collection[T]) setJSON(data []byte) error {
	items, err := c.decode(data)
	if err != nil {
		return err
	}
	c.Set(items)
	return nil
}

// Publish stores items in the backend, then replaces the local sequence.
func (c *Collection[T]) Publish(ctx context.Context, gw gateway.Gateway, items []T) error {
	if err := records.SaveAppContent(ctx, gw, string(c.name), items); err != nil {
		return err
	}
	c.Set(items)
	return nil
}

func (c *Collection[T]) publishJSON(ctx context.Context, gw gateway.Gateway, data []byte) error {
	items, err := c.decode(data)
	if err != nil {
		return err
	}
	return c.Publish(ctx, gw, items)
}
