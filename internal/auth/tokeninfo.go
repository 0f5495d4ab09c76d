// Package auth verifies Google-issued bearer and ID tokens and resolves the
// calling user's identity.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

// TokenInfo is the subset of Google's tokeninfo response this service reads.
// Numeric fields arrive as strings on the v3 endpoint.
type TokenInfo struct {
	Aud       string `json:"aud"`
	Sub       string `json:"sub"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresIn string `json:"expires_in"`
}

// TTL returns how long the info may be cached, capped by the token's own
// remaining lifetime.
func (t *TokenInfo) TTL(max time.Duration) time.Duration {
	ttl := max
	if secs, err := strconv.ParseInt(t.ExpiresIn, 10, 64); err == nil && secs > 0 {
		if exp := time.Duration(secs) * time.Second; exp < ttl {
			ttl = exp
		}
	}
	return ttl
}

// TokenInfoClient wraps the tokeninfo endpoint behind an injected HTTP client
// with a redis-backed positive-result cache. It replaces what amounted to an
// interception of the HTTP layer in earlier revisions of this service.
type TokenInfoClient struct {
	http     *http.Client
	cache    *redis.Client
	endpoint string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewTokenInfoClient constructs the client. httpClient and cache may be nil;
// nil cache disables caching.
func NewTokenInfoClient(httpClient *http.Client, cache *redis.Client, endpoint string, ttl time.Duration, logger *zap.Logger) *TokenInfoClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenInfoClient{
		http:     httpClient,
		cache:    cache,
		endpoint: endpoint,
		ttl:      ttl,
		logger:   logger,
	}
}

// LookupAccessToken verifies a bearer access token.
func (c *TokenInfoClient) LookupAccessToken(ctx context.Context, token string) (*TokenInfo, error) {
	return c.lookup(ctx, "access_token", token)
}

// LookupIDToken verifies an ID token.
func (c *TokenInfoClient) LookupIDToken(ctx context.Context, token string) (*TokenInfo, error) {
	return c.lookup(ctx, "id_token", token)
}

func (c *TokenInfoClient) lookup(ctx context.Context, param, token string) (*TokenInfo, error) {
	cacheKey := tokenCacheKey(param, token)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var info TokenInfo
			if err := json.Unmarshal(raw, &info); err == nil {
				return &info, nil
			}
		}
	}

	reqURL := fmt.Sprintf("%s?%s=%s", c.endpoint, param, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build tokeninfo request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "tokeninfo unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token rejected")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "read tokeninfo response")
	}

	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "decode tokeninfo response")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, info.TTL(c.ttl)).Err(); err != nil {
			c.logger.Warn("tokeninfo cache write failed", zap.Error(err))
		}
	}

	return &info, nil
}

// tokenCacheKey hashes the raw token so credentials never appear as redis
// keys.
func tokenCacheKey(param, token string) string {
	sum := sha256.Sum256([]byte(token))
	return "tokeninfo:" + param + ":" + hex.EncodeToString(sum[:])
}
