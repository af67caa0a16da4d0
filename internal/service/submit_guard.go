package service

import (
	"sync"
	"time"
)

// submitGuard enforces at-most-one in-flight gateway call per correlation
// token. The hosted payment widget can fire its submit callback more than once
// for a single user gesture, so the guard stays closed for a cooldown window
// after the call completes; releasing it immediately would let the trailing
// duplicate through as a real request.
type submitGuard struct {
	mu       sync.Mutex
	cooldown time.Duration
	entries  map[string]*guardEntry
}

type guardEntry struct {
	inflight      bool
	cooldownUntil time.Time
}

func newSubmitGuard(cooldown time.Duration) *submitGuard {
	return &submitGuard{
		cooldown: cooldown,
		entries:  make(map[string]*guardEntry),
	}
}

// begin reports whether the caller may proceed with a gateway call for the
// token. It returns false while a call is in flight or inside the cooldown
// window after one completed.
func (g *submitGuard) begin(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	g.prune(now)

	if entry, ok := g.entries[token]; ok {
		if entry.inflight || now.Before(entry.cooldownUntil) {
			return false
		}
	}

	g.entries[token] = &guardEntry{inflight: true}
	return true
}

// finish marks the in-flight call complete and starts the cooldown window.
func (g *submitGuard) finish(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if entry, ok := g.entries[token]; ok {
		entry.inflight = false
		entry.cooldownUntil = time.Now().Add(g.cooldown)
	}
}

// prune drops expired entries; callers hold the lock.
func (g *submitGuard) prune(now time.Time) {
	for token, entry := range g.entries {
		if !entry.inflight && now.After(entry.cooldownUntil) {
			delete(g.entries, token)
		}
	}
}
