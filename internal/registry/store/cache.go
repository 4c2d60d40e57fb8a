package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"whaled/internal/registry/models"
)

const tokenKeyPrefix = "whale:token:"

// CachedLedger fronts FindToken with a Redis read-through cache. Ownership at
// creation never changes in this core, so cached entries cannot go stale
// within their TTL. The cache is best-effort: any Redis error falls through
// to the inner ledger.
type CachedLedger struct {
	inner  ledger
	client *redis.Client
	ttl    time.Duration
}

type ledger interface {
	AllocateAndRecord(ctx context.Context, owner common.Address, mintedAt time.Time) (models.TokenID, error)
	FindToken(ctx context.Context, id models.TokenID) (models.Token, error)
	TotalMinted(ctx context.Context) (uint64, error)
}

type cachedToken struct {
	ID       uint64    `json:"id"`
	Owner    string    `json:"owner"`
	MintedAt time.Time `json:"minted_at"`
}

func NewCachedLedger(inner ledger, client *redis.Client, ttl time.Duration) *CachedLedger {
	return &CachedLedger{inner: inner, client: client, ttl: ttl}
}

// AllocateAndRecord delegates to the inner ledger and primes the cache on
// success.
func (c *CachedLedger) AllocateAndRecord(ctx context.Context, owner common.Address, mintedAt time.Time) (models.TokenID, error) {
	id, err := c.inner.AllocateAndRecord(ctx, owner, mintedAt)
	if err != nil {
		return 0, err
	}
	c.set(ctx, models.Token{ID: id, Owner: owner, MintedAt: mintedAt})
	return id, nil
}

func (c *CachedLedger) FindToken(ctx context.Context, id models.TokenID) (models.Token, error) {
	key := tokenKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var ct cachedToken
		if jsonErr := json.Unmarshal(raw, &ct); jsonErr == nil {
			return models.Token{
				ID:       models.TokenID(ct.ID),
				Owner:    common.HexToAddress(ct.Owner),
				MintedAt: ct.MintedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Redis unavailable; serve from the inner ledger without caching.
		return c.inner.FindToken(ctx, id)
	}

	token, err := c.inner.FindToken(ctx, id)
	if err != nil {
		return models.Token{}, err
	}
	c.set(ctx, token)
	return token, nil
}

func (c *CachedLedger) TotalMinted(ctx context.Context) (uint64, error) {
	return c.inner.TotalMinted(ctx)
}

func (c *CachedLedger) set(ctx context.Context, token models.Token) {
	raw, err := json.Marshal(cachedToken{
		ID:       uint64(token.ID),
		Owner:    token.Owner.Hex(),
		MintedAt: token.MintedAt,
	})
	if err != nil {
		return
	}
	// Best-effort; a failed SET only costs a future cache miss.
	_ = c.client.Set(ctx, tokenKey(token.ID), raw, c.ttl).Err()
}

func tokenKey(id models.TokenID) string {
	return tokenKeyPrefix + models.FormatTokenID(id)
}
