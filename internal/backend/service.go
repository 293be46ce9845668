// Package backend is the self-hosted gateway: accounts and records in
// Postgres, sessions and user events in Redis, app content in MongoDB and
// uploads in Cloudinary.
package backend

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AnshRaj112/vibes-platform/internal/localstore"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
)

// Options wires the service to its stores. Mongo and Files are optional;
// without them app_content and uploads are unavailable. Sessions defaults to
// Redis-backed tokens.
type Options struct {
	DB       *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Database
	Files    Files
	Sessions Sessions
	Logger   logger.Logger
}

// Service is shared by every client of the BFF.
type Service struct {
	db       *sql.DB
	tables   *Tables
	content  *Content
	files    Files
	sessions Sessions
	hub      *hub
	log      logger.Logger
}

func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}
	s := &Service{
		db:       opts.DB,
		tables:   NewTables(opts.DB),
		files:    opts.Files,
		sessions: opts.Sessions,
		hub:      newHub(opts.Redis, log),
		log:      log,
	}
	if opts.Mongo != nil {
		s.content = NewContent(opts.Mongo)
	}
	if s.sessions == nil && opts.Redis != nil {
		s.sessions = NewRedisSessions(opts.Redis)
	}
	return s
}

// Start subscribes to user events until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.hub.start(ctx)
}

// NewClient attaches one browser client. Its session token lives in store.
func (s *Service) NewClient(store localstore.Store) *Client {
	c := newClient(s, store)
	s.hub.register(c)
	return c
}
