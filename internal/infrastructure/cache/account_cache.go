package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
	"github.com/redis/go-redis/v9"
)

const accountKeyPrefix = "ledger:accounts:"

// RedisAccountCache keeps one JSON document per tenant holding its chart
// of accounts
type RedisAccountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAccountCache creates a cache whose documents expire after ttl
func NewRedisAccountCache(client *redis.Client, ttl time.Duration) *RedisAccountCache {
	return &RedisAccountCache{client: client, ttl: ttl}
}

// Get returns the cached chart; ok is false on a miss
func (c *RedisAccountCache) Get(ctx context.Context, tenantID uuid.UUID) ([]*accounting.Account, bool, error) {
	data, err := c.client.Get(ctx, accountKeyPrefix+tenantID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read account cache: %w", err)
	}
	accounts, err := decodeAccounts(data)
	if err != nil {
		return nil, false, err
	}
	return accounts, true, nil
}

// Set replaces the cached chart
func (c *RedisAccountCache) Set(ctx context.Context, tenantID uuid.UUID, accounts []*accounting.Account) error {
	data, err := encodeAccounts(accounts)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, accountKeyPrefix+tenantID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write account cache: %w", err)
	}
	return nil
}

// Invalidate drops the tenant's document
func (c *RedisAccountCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.client.Del(ctx, accountKeyPrefix+tenantID.String()).Err()
}

func encodeAccounts(accounts []*accounting.Account) ([]byte, error) {
	rows := make([]*models.AccountModel, len(accounts))
	for i, a := range accounts {
		rows[i] = models.AccountModelFromDomain(a)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode accounts: %w", err)
	}
	return data, nil
}

func decodeAccounts(data []byte) ([]*accounting.Account, error) {
	var rows []models.AccountModel
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	accounts := make([]*accounting.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

type cachedChart struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryAccountCache is the single-process AccountCache used when Redis
// is disabled. It stores encoded copies so callers can't mutate entries.
type InMemoryAccountCache struct {
	mu     sync.RWMutex
	charts map[uuid.UUID]cachedChart
	ttl    time.Duration
	now    func() time.Time
}

// NewInMemoryAccountCache creates an empty cache
func NewInMemoryAccountCache(ttl time.Duration) *InMemoryAccountCache {
	return &InMemoryAccountCache{charts: make(map[uuid.UUID]cachedChart), ttl: ttl, now: time.Now}
}

// Get returns the cached chart; ok is false on a miss or when expired
func (c *InMemoryAccountCache) Get(_ context.Context, tenantID uuid.UUID) ([]*accounting.Account, bool, error) {
	c.mu.RLock()
	chart, ok := c.charts[tenantID]
	c.mu.RUnlock()
	if !ok || (c.ttl > 0 && c.now().After(chart.expiresAt)) {
		return nil, false, nil
	}
	accounts, err := decodeAccounts(chart.data)
	if err != nil {
		return nil, false, err
	}
	return accounts, true, nil
}

// Set replaces the cached chart
func (c *InMemoryAccountCache) Set(_ context.Context, tenantID uuid.UUID, accounts []*accounting.Account) error {
	data, err := encodeAccounts(accounts)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.charts[tenantID] = cachedChart{data: data, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the tenant's chart
func (c *InMemoryAccountCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	delete(c.charts, tenantID)
	c.mu.Unlock()
	return nil
}
