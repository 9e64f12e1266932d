// Package guard provides an advisory in-flight lease so that two
// invocations for the same record do not both send.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by Acquire when another invocation holds the lease.
var ErrHeld = errors.New("lease held by another invocation")

const DefaultTTL = 30 * time.Second

// Lease identifies an acquired key. Only the holder's token releases it.
type Lease struct {
	Key   string
	Token string
}

type Guard interface {
	Acquire(ctx context.Context, key string) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
}

// Key namespaces a record into a lease key.
func Key(database, collection, id string) string {
	return fmt.Sprintf("dispatcher:inflight:%s:%s:%s", database, collection, id)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard implements Guard with SET NX and a TTL. A crashed holder's
// lease expires on its own.
type RedisGuard struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
}

func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{
		client:   client,
		ttl:      ttl,
		newToken: func() string { return uuid.New().String() },
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (*Lease, error) {
	token := g.newToken()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &Lease{Key: key, Token: token}, nil
}

func (g *RedisGuard) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{lease.Key}, lease.Token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", lease.Key, err)
	}
	return nil
}
