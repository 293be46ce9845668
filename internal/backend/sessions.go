package backend

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
)

// Sessions issues and checks opaque session tokens.
type Sessions interface {
	Create(ctx context.Context, userID string) (string, error)
	// Validate returns the token's user id, or ok=false for an unknown token.
	Validate(ctx context.Context, token string) (userID string, ok bool, err error)
	Invalidate(ctx context.Context, token string) error
	// InvalidateUser revokes every session of userID.
	InvalidateUser(ctx context.Context, userID string) error
}

// RedisSessions keeps tokens in Redis with a sliding 7-day expiry: every
// successful Validate pushes it back. A user holds one session per browser
// client, so logins do not evict each other; user_session:<id> indexes them
// for InvalidateUser.
type RedisSessions struct {
	client *redis.Client
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

func (s *RedisSessions) Create(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, userID, SessionDuration)
	pipe.SAdd(ctx, UserSessionKeyPrefix+userID, token)
	pipe.Expire(ctx, UserSessionKeyPrefix+userID, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessions) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	userID, err := s.client.GetEx(ctx, SessionKeyPrefix+token, SessionDuration).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.client.Expire(ctx, UserSessionKeyPrefix+userID, SessionDuration)
	return userID, true, nil
}

func (s *RedisSessions) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + token
	userID, err := s.client.Get(ctx, sessionKey).Result()
	if err == nil && userID != "" {
		s.client.SRem(ctx, UserSessionKeyPrefix+userID, token)
	}
	return s.client.Del(ctx, sessionKey).Err()
}

func (s *RedisSessions) InvalidateUser(ctx context.Context, userID string) error {
	userKey := UserSessionKeyPrefix + userID
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, SessionKeyPrefix+t)
	}
	keys = append(keys, userKey)
	return s.client.Del(ctx, keys...).Err()
}
