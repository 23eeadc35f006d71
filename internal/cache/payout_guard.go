package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"sessionescrow/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrPayoutInProgress = fmt.Errorf("%w: a payout for this host is already in progress", domain.ErrValidation)
	ErrPayoutThrottled  = fmt.Errorf("%w: too many payout requests", domain.ErrValidation)
)

type GuardConfig struct {
	LockTTL     time.Duration
	MaxAttempts int
	Window      time.Duration
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = time.Hour
	}
	return c
}

// RedisPayoutGuard serializes payouts per host across instances and counts attempts per window.
type RedisPayoutGuard struct {
	client *redis.Client
	cfg    GuardConfig
}

func NewRedisPayoutGuard(client *redis.Client, cfg GuardConfig) *RedisPayoutGuard {
	return &RedisPayoutGuard{client: client, cfg: cfg.withDefaults()}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Acquire counts the attempt and takes the host lock. The returned func releases the lock.
func (g *RedisPayoutGuard) Acquire(ctx context.Context, hostID uint) (func(context.Context), error) {
	id := strconv.FormatUint(uint64(hostID), 10)
	attemptsKey := "escrow:payout:attempts:" + id
	lockKey := "escrow:payout:lock:" + id

	count, err := g.client.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return nil, err
	}
	if count == 1 {
		if err := g.client.Expire(ctx, attemptsKey, g.cfg.Window).Err(); err != nil {
			return nil, err
		}
	}
	if count > int64(g.cfg.MaxAttempts) {
		return nil, ErrPayoutThrottled
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, lockKey, token, g.cfg.LockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPayoutInProgress
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, g.client, []string{lockKey}, token).Err()
	}, nil
}

// MemoryPayoutGuard is the single-instance fallback when no redis is configured.
type MemoryPayoutGuard struct {
	cfg GuardConfig
	now func() time.Time

	mu       sync.Mutex
	locks    map[uint]time.Time
	attempts map[uint][]time.Time
}

func NewMemoryPayoutGuard(cfg GuardConfig) *MemoryPayoutGuard {
	return &MemoryPayoutGuard{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		locks:    make(map[uint]time.Time),
		attempts: make(map[uint][]time.Time),
	}
}

func (g *MemoryPayoutGuard) Acquire(ctx context.Context, hostID uint) (func(context.Context), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	recent := g.attempts[hostID][:0]
	for _, at := range g.attempts[hostID] {
		if now.Sub(at) < g.cfg.Window {
			recent = append(recent, at)
		}
	}
	recent = append(recent, now)
	g.attempts[hostID] = recent
	if len(recent) > g.cfg.MaxAttempts {
		return nil, ErrPayoutThrottled
	}

	if until, ok := g.locks[hostID]; ok && now.Before(until) {
		return nil, ErrPayoutInProgress
	}
	until := now.Add(g.cfg.LockTTL)
	g.locks[hostID] = until
	return func(context.Context) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.locks[hostID].Equal(until) {
			delete(g.locks, hostID)
		}
	}, nil
}
