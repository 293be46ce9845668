package backend

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/vibes-platform/internal/gateway"
	"github.com/AnshRaj112/vibes-platform/internal/logger"
)

// UserChannelPrefix prefixes the per-user pub/sub channel.
const UserChannelPrefix = "auth:user:"

// UserEvent is the payload published on auth:user:<id>.
type UserEvent struct {
	Type      gateway.Event `json:"type"`
	UserID    string        `json:"user_id"`
	Timestamp time.Time     `json:"timestamp"`
}

// hub fans user events out to the clients of this instance. With Redis the
// events travel through pub/sub so every BFF instance sees them; without it
// they are delivered locally.
type hub struct {
	redis *redis.Client
	log   logger.Logger

	// resubscribe delay after a subscriber error, doubling up to maxBackoff
	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.RWMutex
	clients map[*Client]struct{}
	started sync.Once
}

func newHub(client *redis.Client, log logger.Logger) *hub {
	return &hub{
		redis:      client,
		log:        log,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		clients:    make(map[*Client]struct{}),
	}
}

func (h *hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// fanOut delivers event to every local client signed in as its user.
func (h *hub) fanOut(event UserEvent) {
	h.mu.RLock()
	var targets []*Client
	for c := range h.clients {
		if s := c.session(); s != nil && s.UserID == event.UserID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.emit(event.Type, c.session())
	}
}

func (h *hub) publish(ctx context.Context, userID string) error {
	event := UserEvent{Type: gateway.EventUserUpdated, UserID: userID, Timestamp: time.Now().UTC()}
	if h.redis == nil {
		h.fanOut(event)
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.redis.Publish(ctx, UserChannelPrefix+userID, data).Err()
}

// start runs a single shared subscriber until ctx ends.
func (h *hub) start(ctx context.Context) {
	if h.redis == nil {
		return
	}
	h.started.Do(func() {
		go h.run(ctx)
	})
}

func (h *hub) run(ctx context.Context) {
	backoff := h.minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := h.redis.PSubscribe(ctx, UserChannelPrefix+"*")
			defer pubsub.Close()
			h.log.Info("user event subscriber started", "pattern", UserChannelPrefix+"*")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					h.log.Warn("user event subscriber error", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > h.maxBackoff {
						backoff = h.maxBackoff
					}
					return
				}
				backoff = h.minBackoff

				var event UserEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.log.Warn("bad user event", msg.Channel, err)
					continue
				}
				if event.UserID == "" {
					event.UserID = strings.TrimPrefix(msg.Channel, UserChannelPrefix)
				}
				h.fanOut(event)
			}
		}()
	}
}
