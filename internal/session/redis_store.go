package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"xcreator/pkg/domain"
)

// RedisStore keeps the session in Redis with a TTL, for dashboard deployments
// where several instances share one signed-in identity.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store on an existing client.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = "xcreator:session"
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Save(sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *RedisStore) Load() (domain.Session, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return domain.Session{}, false, nil
	}
	if sess.Token == "" {
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, s.key).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
