package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrSessionNotFound = errors.New("会话不存在或已过期")

// SessionStore 基于 Redis 的会话存储
// key: session:{token}  value: "{userID}:{role}"
// 会话签发带 TTL，过期自动失效，登出时主动删除
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *SessionStore) Save(ctx context.Context, token string, userID int64, role string, ttl time.Duration) error {
	value := fmt.Sprintf("%d:%s", userID, role)
	return s.client.Set(ctx, sessionKey(token), value, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, token string) (int64, string, error) {
	value, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, "", ErrSessionNotFound
		}
		return 0, "", err
	}

	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, "", ErrSessionNotFound
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", ErrSessionNotFound
	}
	return userID, parts[1], nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}
