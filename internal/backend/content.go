package backend

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
)

// ContentCollection is the Mongo collection holding app_content documents.
const ContentCollection = "app_content"

// Content stores one document per content key, with the key as _id.
type Content struct {
	coll *mongo.Collection
}

// NewContent uses the app_content collection of db.
func NewContent(db *mongo.Database) *Content {
	return &Content{coll: db.Collection(ContentCollection)}
}

func (c *Content) Get(ctx context.Context, id string) (gateway.Record, error) {
	var doc bson.M
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ContentCollection, err)
	}
	return toRecord(doc), nil
}

func (c *Content) List(ctx context.Context, filter gateway.Filter) ([]gateway.Record, error) {
	q := bson.M{}
	for k, v := range filter {
		if k == "id" {
			k = "_id"
		}
		q[k] = v
	}
	cursor, err := c.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ContentCollection, err)
	}
	defer cursor.Close(ctx)

	var out []gateway.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("list %s: %w", ContentCollection, err)
		}
		out = append(out, toRecord(doc))
	}
	return out, cursor.Err()
}

// Upsert sets the fields rec carries, creating the document when missing.
func (c *Content) Upsert(ctx context.Context, rec gateway.Record) error {
	id, _ := rec["id"].(string)
	if id == "" {
		return fmt.Errorf("upsert %s: record has no id", ContentCollection)
	}
	set := bson.M{}
	for k, v := range rec {
		if k != "id" {
			set[k] = v
		}
	}
	if len(set) == 0 {
		set["data"] = bson.A{}
	}
	_, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", ContentCollection, err)
	}
	return nil
}

func (c *Content) Delete(ctx context.Context, id string) error {
	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s: %w", ContentCollection, err)
	}
	return nil
}

func toRecord(doc bson.M) gateway.Record {
	rec := make(gateway.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			k = "id"
		}
		rec[k] = plain(v)
	}
	return rec
}

// plain converts decoded BSON containers into maps and slices.
func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	default:
		return x
	}
}
