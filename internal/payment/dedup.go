package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/easytransact-backend/internal/metrics"
)

const dedupTTL = 24 * time.Hour

// Виды операций, которые не должны обрабатываться дважды.
const (
	DedupPayPalCapture = "paypal_capture"
	DedupStripeEvent   = "stripe_event"
)

// Deduper помечает внешние операции как обработанные.
type Deduper interface {
	// Claim возвращает true, если ключ занят впервые.
	Claim(ctx context.Context, kind, key string) (bool, error)
	// Release освобождает ключ после неудачной обработки, чтобы повтор был возможен.
	Release(ctx context.Context, kind, key string) error
}

// RedisDeduper хранит ключи в Redis.
// Формат ключа: dedup:<kind>:<key>
type RedisDeduper struct {
	client *redis.Client
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

func (d *RedisDeduper) Claim(ctx context.Context, kind, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKey(kind, key), "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	observeDedup(kind, ok)
	return ok, nil
}

func (d *RedisDeduper) Release(ctx context.Context, kind, key string) error {
	if err := d.client.Del(ctx, dedupKey(kind, key)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

// MemoryDeduper используется, когда Redis не настроен. Работает в пределах одного процесса.
type MemoryDeduper struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{keys: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) Claim(_ context.Context, kind, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	k := dedupKey(kind, key)
	if exp, ok := d.keys[k]; ok && now.Before(exp) {
		observeDedup(kind, false)
		return false, nil
	}
	d.keys[k] = now.Add(dedupTTL)
	observeDedup(kind, true)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, kind, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, dedupKey(kind, key))
	return nil
}

func dedupKey(kind, key string) string {
	return fmt.Sprintf("dedup:%s:%s", kind, key)
}

func observeDedup(kind string, claimed bool) {
	result := "hit"
	if claimed {
		result = "miss"
	}
	metrics.PaymentDedupTotal.WithLabelValues(kind, result).Inc()
}
