package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore resolves bearer tokens issued by the auth service into actors.
// Sessions live in Redis under "session:<id>".
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

type sessionPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Lookup loads the actor bound to a session id.
func (s *SessionStore) Lookup(ctx context.Context, id string) (Actor, error) {
	if s == nil || s.client == nil || id == "" {
		return Actor{}, ErrSessionNotFound
	}
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Actor{}, ErrSessionNotFound
		}
		return Actor{}, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Actor{}, fmt.Errorf("decode session: %w", err)
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(stored.UserID), 10, 64)
	if err != nil {
		return Actor{}, fmt.Errorf("decode session user: %w", err)
	}
	return Actor{UserID: userID, Role: ParseRole(stored.Role)}, nil
}

// Save writes a session. The auth service owns session creation; this is used by tooling and tests.
func (s *SessionStore) Save(ctx context.Context, id string, actor Actor) error {
	data, err := json.Marshal(sessionPayload{UserID: strconv.FormatInt(actor.UserID, 10), Role: string(actor.Role)})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.redisKey(id), data, s.ttl).Err()
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (s *SessionStore) redisKey(id string) string {
	return "session:" + id
}
