package otpstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"techcafe/internal/domain"
)

// RedisConfig holds connection settings for the OTP cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens a client and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// lockedCode replaces the stored hash once the attempts run out. It never equals a hex digest.
const lockedCode = "locked"

// consumeScript deletes the code and its attempt counter when the hash matches.
// A mismatch bumps the counter, which lives as long as the code; at ARGV[2]
// misses the code is overwritten with lockedCode, keeping its TTL.
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
local ttl = redis.call("PTTL", KEYS[1])
local misses = redis.call("INCR", KEYS[2])
if ttl > 0 then
	redis.call("PEXPIRE", KEYS[2], ttl)
end
if misses >= tonumber(ARGV[2]) and ttl > 0 then
	redis.call("SET", KEYS[1], "` + lockedCode + `", "PX", ttl)
end
return 0
`)

type redisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore returns a domain.OTPStore backed by Redis keys with TTLs.
func NewRedisStore(client redis.Cmdable, prefix string) domain.OTPStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(key string) string {
	return s.prefix + key
}

func (s *redisStore) attemptsKey(key string) string {
	return s.prefix + key + ":attempts"
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *redisStore) Issue(ctx context.Context, key, code string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), hashCode(code), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *redisStore) Consume(ctx context.Context, key, code string) (bool, error) {
	keys := []string{s.key(key), s.attemptsKey(key)}
	n, err := consumeScript.Run(ctx, s.client, keys, hashCode(code), domain.MaxOTPAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("redis consume: %w", err)
	}
	return n == 1, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key), s.attemptsKey(key)).Err()
}
