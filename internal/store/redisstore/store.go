package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps the redis client used to throttle login attempts. The service
// runs fine without redis; callers treat a nil *Store as "no throttling".
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RegisterLoginAttempt counts a login attempt for the client and returns the
// number of attempts in the current window.
func (s *Store) RegisterLoginAttempt(ctx context.Context, clientIP string, window time.Duration) (int64, error) {
	key := "login_attempts:" + clientIP
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ResetLoginAttempts clears the counter after a successful login.
func (s *Store) ResetLoginAttempts(ctx context.Context, clientIP string) error {
	return s.rdb.Del(ctx, "login_attempts:"+clientIP).Err()
}
