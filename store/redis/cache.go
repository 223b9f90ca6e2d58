/*
Package redis provides a Redis-backed payment.ContractCache.

PURPOSE:
  Shares active-contract lookups between server instances. Entries are
  JSON-encoded contracts under fee-engine:contract:active:{client_id} with
  the configured TTL.

FAILURE MODE:
  Redis errors are logged and treated as a miss; the engine falls back to
  the store. A failed Invalidate is logged and the entry expires by TTL.

SEE ALSO:
  - payment/cache.go: interface and process-local implementation
*/
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/period"
	"go.uber.org/zap"
)

const keyPrefix = "fee-engine:contract:active:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// ContractCache implements payment.ContractCache on Redis.
type ContractCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ payment.ContractCache = (*ContractCache)(nil)

// NewContractCache builds a cache over client. A non-positive ttl uses
// payment.DefaultCacheTTL.
func NewContractCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *ContractCache {
	if ttl <= 0 {
		ttl = payment.DefaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContractCache{client: client, ttl: ttl, log: log.Named("contract_cache")}
}

func key(clientID payment.ClientID) string {
	return fmt.Sprintf("%s%d", keyPrefix, clientID)
}

func (c *ContractCache) Get(ctx context.Context, clientID payment.ClientID) (payment.Contract, bool) {
	raw, err := c.client.Get(ctx, key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return payment.Contract{}, false
	}
	if err != nil {
		c.log.Warn("cache get failed", zap.Int64("client_id", int64(clientID)), zap.Error(err))
		return payment.Contract{}, false
	}

	var rec contractRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.log.Warn("cache entry undecodable", zap.Int64("client_id", int64(clientID)), zap.Error(err))
		return payment.Contract{}, false
	}
	return rec.contract(), true
}

func (c *ContractCache) Set(ctx context.Context, contract payment.Contract) {
	raw, err := json.Marshal(recordOf(contract))
	if err != nil {
		c.log.Warn("cache encode failed", zap.Int64("contract_id", int64(contract.ID)), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key(contract.ClientID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.Int64("client_id", int64(contract.ClientID)), zap.Error(err))
	}
}

func (c *ContractCache) Invalidate(ctx context.Context, clientID payment.ClientID) {
	if err := c.client.Del(ctx, key(clientID)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.Int64("client_id", int64(clientID)), zap.Error(err))
	}
}

// contractRecord is the cached wire form of a contract.
type contractRecord struct {
	ID           int64               `json:"contract_id"`
	ClientID     int64               `json:"client_id"`
	Active       bool                `json:"is_active"`
	Provider     string              `json:"provider_name,omitempty"`
	Number       string              `json:"contract_number,omitempty"`
	StartDate    string              `json:"contract_start_date,omitempty"`
	FeeType      string              `json:"fee_type"`
	PercentRate  decimal.NullDecimal `json:"percent_rate"`
	FlatRate     decimal.NullDecimal `json:"flat_rate"`
	Schedule     string              `json:"payment_schedule"`
	Participants int                 `json:"num_people"`
	Notes        string              `json:"notes,omitempty"`
}

func recordOf(c payment.Contract) contractRecord {
	return contractRecord{
		ID:           int64(c.ID),
		ClientID:     int64(c.ClientID),
		Active:       c.Active,
		Provider:     c.Provider,
		Number:       c.Number,
		StartDate:    c.StartDate,
		FeeType:      string(c.FeeType),
		PercentRate:  c.PercentRate,
		FlatRate:     c.FlatRate,
		Schedule:     string(c.Schedule),
		Participants: c.Participants,
		Notes:        c.Notes,
	}
}

func (r contractRecord) contract() payment.Contract {
	return payment.Contract{
		ID:           payment.ContractID(r.ID),
		ClientID:     payment.ClientID(r.ClientID),
		Active:       r.Active,
		Provider:     r.Provider,
		Number:       r.Number,
		StartDate:    r.StartDate,
		FeeType:      fee.Type(r.FeeType),
		PercentRate:  r.PercentRate,
		FlatRate:     r.FlatRate,
		Schedule:     period.Schedule(r.Schedule),
		Participants: r.Participants,
		Notes:        r.Notes,
	}
}
