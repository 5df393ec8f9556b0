package identity

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
)

// RedisConfig holds the connection parameters for RedisRegistry.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration // 0 means keys never expire
}

// RedisRegistry resolves identities against keys of the form
// "securesession:identity:<hex id>", each holding a raw signing public
// key.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry connects to Redis and verifies the connection.
func NewRedisRegistry(cfg RedisConfig) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("identity: connect to redis: %w", err)
	}

	return &RedisRegistry{client: client, ttl: cfg.TTL}, nil
}

func redisKey(id []byte) string {
	return "securesession:identity:" + hex.EncodeToString(id)
}

// Register stores the raw signing public key for id.
func (r *RedisRegistry) Register(ctx context.Context, id, signPubKey []byte) error {
	if err := r.client.Set(ctx, redisKey(id), signPubKey, r.ttl).Err(); err != nil {
		return fmt.Errorf("identity: register peer: %w", err)
	}
	return nil
}

// Lookup implements Registry. It ignores context cancellation, same as
// the rest of pkg/identity's Registry interface, since pkg/session's
// handshake callbacks are synchronous and carry no context.
func (r *RedisRegistry) Lookup(id []byte) ([]byte, error) {
	data, err := r.client.Get(context.Background(), redisKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("identity: unknown peer %q: %w", hex.EncodeToString(id), apperr.ErrInvalidParameter)
	}
	if err != nil {
		return nil, fmt.Errorf("identity: query peer: %w", err)
	}
	return container.Build(container.TagECPubKey, data), nil
}

// Close releases the underlying client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
