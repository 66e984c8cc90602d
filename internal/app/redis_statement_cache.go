package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/transfa/ledger-service/internal/domain"
)

// StatementCache is an optional read-path cache for statements. It is never
// the source of truth for balances; entries carry a short TTL and are
// invalidated best-effort after every commit.
type StatementCache interface {
	Get(ctx context.Context, accountID int64) (*domain.Statement, bool, error)
	Set(ctx context.Context, accountID int64, statement *domain.Statement) error
	Invalidate(ctx context.Context, accountID int64) error
}

// RedisStatementCache implements StatementCache on Redis with JSON values.
type RedisStatementCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStatementCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStatementCache {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "ledger:statement"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if ttl <= 0 {
		ttl = time.Second
	}

	return &RedisStatementCache{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
	}
}

func (c *RedisStatementCache) key(accountID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, accountID)
}

func (c *RedisStatementCache) Get(ctx context.Context, accountID int64) (*domain.Statement, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(accountID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var statement domain.Statement
	if err := json.Unmarshal(raw, &statement); err != nil {
		return nil, false, fmt.Errorf("unexpected statement cache payload: %w", err)
	}
	return &statement, true, nil
}

func (c *RedisStatementCache) Set(ctx context.Context, accountID int64, statement *domain.Statement) error {
	if c == nil || c.client == nil || statement == nil {
		return nil
	}
	raw, err := json.Marshal(statement)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(accountID), raw, c.ttl).Err()
}

func (c *RedisStatementCache) Invalidate(ctx context.Context, accountID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(accountID)).Err()
}
