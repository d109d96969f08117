package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// tokenKeyPrefix namespaces cached access tokens per recruiter.
const tokenKeyPrefix = "pipeline:calendar:token:"

// expiryMargin drops a cached token this long before it actually expires.
const expiryMargin = time.Minute

// TokenCache stores access tokens between calls. Get returns (nil, nil) on
// a miss.
type TokenCache interface {
	Get(ctx context.Context, ownerID string) (*oauth2.Token, error)
	Put(ctx context.Context, ownerID string, tok *oauth2.Token) error
}

// RedisTokens is a TokenCache in Redis. Entries expire with the token.
type RedisTokens struct {
	rdb *redis.Client
}

// NewRedisTokens returns a RedisTokens.
func NewRedisTokens(rdb *redis.Client) *RedisTokens {
	return &RedisTokens{rdb: rdb}
}

func (c *RedisTokens) Get(ctx context.Context, ownerID string) (*oauth2.Token, error) {
	raw, err := c.rdb.Get(ctx, tokenKeyPrefix+ownerID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *RedisTokens) Put(ctx context.Context, ownerID string, tok *oauth2.Token) error {
	ttl := cacheTTL(tok, time.Now())
	if ttl <= 0 {
		return nil
	}
	// Only the access token is cached; the refresh token stays in Postgres.
	raw, err := json.Marshal(oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType, Expiry: tok.Expiry})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, tokenKeyPrefix+ownerID, raw, ttl).Err()
}

// Forget drops the cached access token of ownerID.
func (c *RedisTokens) Forget(ctx context.Context, ownerID string) error {
	return c.rdb.Del(ctx, tokenKeyPrefix+ownerID).Err()
}

func cacheTTL(tok *oauth2.Token, now time.Time) time.Duration {
	if tok == nil || tok.AccessToken == "" || tok.Expiry.IsZero() {
		return 0
	}
	return tok.Expiry.Sub(now) - expiryMargin
}
