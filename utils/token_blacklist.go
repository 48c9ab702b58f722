package utils

import (
	"sync"
	"time"
)

// TokenBlacklist revokes admin JWTs before their natural expiry.
// Redis is preferred so revocations survive restarts and are shared between instances.
type TokenBlacklist struct {
	cache *Cache

	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewTokenBlacklist creates a blacklist backed by cache, or memory when cache is disabled.
func NewTokenBlacklist(cache *Cache) *TokenBlacklist {
	return &TokenBlacklist{cache: cache, revoked: map[string]time.Time{}}
}

func blacklistKey(token string) string {
	return "jwt:blacklist:" + token
}

// Revoke stores a token until expiresAt.
func (b *TokenBlacklist) Revoke(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if b.cache.Enabled() {
		b.cache.SetBytes(blacklistKey(token), []byte("1"), ttl)
		return
	}
	b.mu.Lock()
	b.revoked[token] = expiresAt
	b.mu.Unlock()
}

// IsRevoked checks if a token was revoked. Redis errors fail open.
func (b *TokenBlacklist) IsRevoked(token string) bool {
	if b.cache.Enabled() {
		ok, err := b.cache.Exists(blacklistKey(token))
		return err == nil && ok
	}

	b.mu.RLock()
	expiresAt, ok := b.revoked[token]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		b.mu.Lock()
		delete(b.revoked, token)
		b.mu.Unlock()
		return false
	}
	return true
}
