package records

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

// FetchAppContent returns the backend copy of a content collection. A missing
// row yields (nil, nil).
func FetchAppContent[T any](ctx context.Context, gw gateway.Gateway, key string) ([]T, error) {
	rec, err := gw.GetRecord(ctx, gateway.TableAppContent, key)
	if err != nil {
		return nil, fmt.Errorf("fetch content %s: %w", key, err)
	}
	if rec == nil || rec["data"] == nil {
		return nil, nil
	}
	return decode[[]T](gateway.TableAppContent+"."+key, rec["data"])
}

// SaveAppContent replaces the backend copy of a content collection.
func SaveAppContent[T any](ctx context.Context, gw gateway.Gateway, key string, items []T) error {
	for _, item := range items {
		if err := Validate(gateway.TableAppContent+"."+key, item); err != nil {
			return err
		}
	}
	data, err := toData(items)
	if err != nil {
		return err
	}
	err = gw.UpsertRecord(ctx, gateway.TableAppContent, gateway.Record{
		"id":         key,
		"data":       data,
		"updated_at": NowFunc().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("save content %s: %w", key, err)
	}
	return nil
}

// toData converts typed items into their JSON-shaped form.
func toData[T any](items []T) ([]any, error) {
	rec, err := toRecord(struct {
		Data []T `json:"data"`
	}{items})
	if err != nil {
		return nil, err
	}
	data, _ := rec["data"].([]any)
	if data == nil {
		data = []any{}
	}
	return data, nil
}
