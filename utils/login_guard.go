package utils

import (
	"sync"
	"time"
)

const loginFailureWindow = time.Hour

func loginKey(parts ...string) string {
	key := "login"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

type failureCount struct {
	n       int
	expires time.Time
}

// LoginGuard locks an IP out after repeated failed admin logins.
// Counters live in Redis when the cache is enabled and in memory otherwise; Redis errors fail open.
type LoginGuard struct {
	cache       *Cache
	maxFailures int
	banFor      time.Duration
	now         func() time.Time

	mu    sync.Mutex
	fails map[string]failureCount
	bans  map[string]time.Time
}

// NewLoginGuard bans an IP for banFor after maxFailures failures within an hour.
// maxFailures <= 0 disables the guard.
func NewLoginGuard(cache *Cache, maxFailures int, banFor time.Duration) *LoginGuard {
	if banFor <= 0 {
		banFor = 15 * time.Minute
	}
	return &LoginGuard{
		cache:       cache,
		maxFailures: maxFailures,
		banFor:      banFor,
		now:         time.Now,
		fails:       map[string]failureCount{},
		bans:        map[string]time.Time{},
	}
}

// Banned reports whether ip is currently locked out.
func (g *LoginGuard) Banned(ip string) bool {
	if g == nil || g.maxFailures <= 0 {
		return false
	}
	if g.cache.Enabled() {
		ok, err := g.cache.Exists(loginKey("ban", ip))
		return err == nil && ok
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	until, ok := g.bans[ip]
	if !ok {
		return false
	}
	if g.now().After(until) {
		delete(g.bans, ip)
		return false
	}
	return true
}

// RecordFailure counts a failed login and reports whether ip is now banned.
func (g *LoginGuard) RecordFailure(ip string) bool {
	if g == nil || g.maxFailures <= 0 {
		return false
	}
	if g.cache.Enabled() {
		n, err := g.cache.Incr(loginKey("fail", ip), loginFailureWindow)
		if err != nil || int(n) < g.maxFailures {
			return false
		}
		g.cache.SetBytes(loginKey("ban", ip), []byte("1"), g.banFor)
		g.cache.Delete(loginKey("fail", ip))
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	fc := g.fails[ip]
	if now.After(fc.expires) {
		fc = failureCount{expires: now.Add(loginFailureWindow)}
	}
	fc.n++
	if fc.n < g.maxFailures {
		g.fails[ip] = fc
		return false
	}
	delete(g.fails, ip)
	g.bans[ip] = now.Add(g.banFor)
	return true
}

// Reset clears the failure counter after a successful login.
func (g *LoginGuard) Reset(ip string) {
	if g == nil {
		return
	}
	if g.cache.Enabled() {
		g.cache.Delete(loginKey("fail", ip))
		return
	}
	g.mu.Lock()
	delete(g.fails, ip)
	g.mu.Unlock()
}
