package executor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// TokenStore reserves idempotency tokens so each one is submitted at most once.
type TokenStore interface {
	// Reserve returns false if token is already reserved.
	Reserve(ctx context.Context, token domain.IdempotencyToken) (bool, error)
	// Release frees token after a definite rejection.
	Release(ctx context.Context, token domain.IdempotencyToken) error
}

// MemoryTokenStore keeps tokens in process memory for ttl.
type MemoryTokenStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	tokens map[domain.IdempotencyToken]time.Time
	now    func() time.Time
}

// NewMemoryTokenStore creates a MemoryTokenStore. ttl <= 0 keeps tokens forever.
func NewMemoryTokenStore(ttl time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{
		ttl:    ttl,
		tokens: make(map[domain.IdempotencyToken]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryTokenStore) Reserve(_ context.Context, token domain.IdempotencyToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	if _, ok := s.tokens[token]; ok {
		return false, nil
	}
	var expires time.Time
	if s.ttl > 0 {
		expires = now.Add(s.ttl)
	}
	s.tokens[token] = expires
	return true, nil
}

func (s *MemoryTokenStore) Release(_ context.Context, token domain.IdempotencyToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *MemoryTokenStore) evictLocked(now time.Time) {
	for tok, exp := range s.tokens {
		if !exp.IsZero() && now.After(exp) {
			delete(s.tokens, tok)
		}
	}
}

const redisTokenPrefix = "mtftrader:token:"

// RedisTokenStore shares reservations between processes through Redis SET NX.
type RedisTokenStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisTokenStore creates a RedisTokenStore.
func NewRedisTokenStore(client redis.UniversalClient, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, ttl: ttl}
}

func (s *RedisTokenStore) Reserve(ctx context.Context, token domain.IdempotencyToken) (bool, error) {
	ok, err := s.client.SetNX(ctx, redisTokenPrefix+token.String(), time.Now().UnixMilli(), s.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(domain.ErrTransport, "reserve token %s: %v", token, err)
	}
	return ok, nil
}

func (s *RedisTokenStore) Release(ctx context.Context, token domain.IdempotencyToken) error {
	if err := s.client.Del(ctx, redisTokenPrefix+token.String()).Err(); err != nil {
		return errors.Wrapf(domain.ErrTransport, "release token %s: %v", token, err)
	}
	return nil
}
