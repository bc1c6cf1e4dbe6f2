package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lingocrowd/contribution_control/internal/task"
)

// Guard claims a batch fingerprint so the same upload is not ingested twice
// while the claim lives.
type Guard interface {
	Claim(ctx context.Context, fingerprint string) (bool, error)
	Release(ctx context.Context, fingerprint string) error
}

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) Guard {
	return &redisGuard{
		client: client,
		ttl:    ttl,
		prefix: "ingest:batch:",
	}
}

func (g *redisGuard) Claim(ctx context.Context, fingerprint string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+fingerprint, time.Now().Unix(), g.ttl).Result()
}

func (g *redisGuard) Release(ctx context.Context, fingerprint string) error {
	return g.client.Del(ctx, g.prefix+fingerprint).Err()
}

// Fingerprint identifies an upload by type, mode and file bytes.
func Fingerprint(t task.Type, mode Mode, data []byte) string {
	h := sha256.New()
	h.Write([]byte(t))
	h.Write([]byte{0})
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
