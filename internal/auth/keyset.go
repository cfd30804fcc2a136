// Package auth verifies Firebase ID tokens against Google's rotating
// public signing keys.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ptts/sonuby-api/internal/errors"
	"github.com/ptts/sonuby-api/internal/httputil"
)

// GoogleJWKSURL serves the public keys Google uses to sign Firebase ID
// tokens (secure token service).
const GoogleJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// cacheKey is the fixed store key for the cached key set.
const cacheKey = "firebase-jwks"

// =============================================================================
// Key Set
// =============================================================================

// Key is a single public signing key from the provider's JWKS document.
type Key struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// RSAPublicKey reconstructs the RSA public key from the base64url-encoded
// modulus and exponent.
func (k *Key) RSAPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// KeySet is the provider's key set plus the expiry derived from the
// provider's cache hint. It is replaced wholesale on refresh, never
// mutated in place.
type KeySet struct {
	Keys      []Key     `json:"keys"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Key returns the key with the given ID.
func (ks *KeySet) Key(kid string) (*Key, bool) {
	for i := range ks.Keys {
		if ks.Keys[i].Kid == kid {
			return &ks.Keys[i], true
		}
	}
	return nil, false
}

// =============================================================================
// Key Store
// =============================================================================

// KeyStore is the capability interface over the external keyed store that
// holds the cached key set. The store enforces its own TTL; a present entry
// is implicitly unexpired.
type KeyStore interface {
	// Get returns the cached key set, or (nil, nil) on a miss.
	Get(ctx context.Context) (*KeySet, error)

	// Put stores the key set with the given TTL.
	Put(ctx context.Context, ks *KeySet, ttl time.Duration) error
}

// RedisStore stores the key set in Redis with a server-side TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed key store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the cached key set, or (nil, nil) on a miss.
func (s *RedisStore) Get(ctx context.Context) (*KeySet, error) {
	data, err := s.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var ks KeySet
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("unmarshal cached key set: %w", err)
	}
	return &ks, nil
}

// Put stores the key set; Redis evicts it after ttl.
func (s *RedisStore) Put(ctx context.Context, ks *KeySet, ttl time.Duration) error {
	data, err := json.Marshal(ks)
	if err != nil {
		return fmt.Errorf("marshal key set: %w", err)
	}
	if err := s.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// MemoryStore is an in-process key store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	keySet    *KeySet
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the cached key set, or (nil, nil) when absent or expired.
func (s *MemoryStore) Get(ctx context.Context) (*KeySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.keySet == nil || time.Now().After(s.expiresAt) {
		return nil, nil
	}
	return s.keySet, nil
}

// Put stores the key set until ttl elapses.
func (s *MemoryStore) Put(ctx context.Context, ks *KeySet, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keySet = ks
	s.expiresAt = time.Now().Add(ttl)
	return nil
}

// =============================================================================
// Key Set Cache
// =============================================================================

var maxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

// KeySetCache fetches the provider's key set on demand and caches it in a
// KeyStore for the provider-supplied TTL. Concurrent cold misses may race
// to populate the store; all writes carry equivalent data, so last write
// wins without correctness impact.
type KeySetCache struct {
	store   KeyStore
	client  *httputil.Client
	jwksURL string
}

// NewKeySetCache creates a key set cache over the given store.
func NewKeySetCache(store KeyStore, client *httputil.Client) *KeySetCache {
	return &KeySetCache{
		store:   store,
		client:  client,
		jwksURL: GoogleJWKSURL,
	}
}

// WithJWKSURL overrides the JWKS endpoint. Used in tests.
func (c *KeySetCache) WithJWKSURL(url string) *KeySetCache {
	c.jwksURL = url
	return c
}

// Get returns the cached key set, fetching and storing it on a miss.
func (c *KeySetCache) Get(ctx context.Context) (*KeySet, error) {
	cached, err := c.store.Get(ctx)
	if err != nil {
		return nil, errors.Internal("Failed to read key set cache", err)
	}
	if cached != nil {
		return cached, nil
	}

	ks, maxAge, err := c.fetchRemote(ctx)
	if err != nil {
		return nil, err
	}

	// max-age=0 means do not cache. The set is served but never stored;
	// a zero TTL would make Redis keep the entry with no expiry at all.
	if maxAge <= 0 {
		return ks, nil
	}

	if err := c.store.Put(ctx, ks, maxAge); err != nil {
		return nil, errors.Internal("Failed to cache key set", err)
	}
	return ks, nil
}

// fetchRemote fetches the JWKS document and derives the expiry from the
// Cache-Control max-age hint.
func (c *KeySetCache) fetchRemote(ctx context.Context) (*KeySet, time.Duration, error) {
	resp, err := c.client.Get(ctx, c.jwksURL)
	if err != nil {
		return nil, 0, errors.UpstreamFetch("Failed to fetch signing keys", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, errors.UpstreamFetch("Failed to fetch signing keys",
			fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode))
	}

	body, err := httputil.ReadAllStrict(resp.Body, 1<<20)
	if err != nil {
		return nil, 0, errors.UpstreamFetch("Failed to fetch signing keys", err)
	}

	var doc struct {
		Keys []Key `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, 0, errors.MalformedResponse("Failed to parse signing keys", err)
	}
	if len(doc.Keys) == 0 {
		return nil, 0, errors.MalformedResponse("Failed to parse signing keys",
			fmt.Errorf("JWKS document contains no keys"))
	}

	maxAge, err := parseMaxAge(resp.Header.Get("Cache-Control"))
	if err != nil {
		return nil, 0, errors.MalformedResponse("Failed to parse signing keys", err)
	}

	ks := &KeySet{
		Keys:      doc.Keys,
		ExpiresAt: time.Now().Add(maxAge),
	}
	return ks, maxAge, nil
}

// parseMaxAge extracts the max-age directive from a Cache-Control header.
func parseMaxAge(header string) (time.Duration, error) {
	m := maxAgePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, fmt.Errorf("invalid or missing Cache-Control max-age")
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid or missing Cache-Control max-age")
	}
	return time.Duration(seconds) * time.Second, nil
}
