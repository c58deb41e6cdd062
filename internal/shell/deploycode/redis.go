package deploycode

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// defaultKey is the cluster-wide key holding the active deploy code. One key
// means one active code for the whole system, regardless of how many gateway
// processes share the redis instance.
const defaultKey = "unideploy:deploy_code"

// RedisStore backs the deploy code with redis, giving the code cluster-wide
// scope. SET NX EX is the atomic set-if-absent-with-TTL the gateway requires.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client, key: defaultKey}, nil
}

// SetNX atomically stores value with ttl if the key is absent.
func (s *RedisStore) SetNX(ctx context.Context, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key, value, ttl).Result()
}

// Get returns the stored code, or ErrNoCode once the TTL has elapsed.
func (s *RedisStore) Get(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return "", ErrNoCode
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Delete removes the stored code.
func (s *RedisStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
