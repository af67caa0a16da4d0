package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitGuardBlocksInflight(t *testing.T) {
	guard := newSubmitGuard(50 * time.Millisecond)

	assert.True(t, guard.begin("pref-1"))
	assert.False(t, guard.begin("pref-1"), "second begin while in flight must be rejected")

	// An unrelated token is independent.
	assert.True(t, guard.begin("pref-2"))
}

func TestSubmitGuardCooldown(t *testing.T) {
	guard := newSubmitGuard(50 * time.Millisecond)

	assert.True(t, guard.begin("pref-1"))
	guard.finish("pref-1")

	assert.False(t, guard.begin("pref-1"), "begin inside cooldown must be rejected")

	time.Sleep(80 * time.Millisecond)
	assert.True(t, guard.begin("pref-1"), "begin after cooldown must pass")
}

func TestSubmitGuardPrunesExpiredEntries(t *testing.T) {
	guard := newSubmitGuard(10 * time.Millisecond)

	assert.True(t, guard.begin("pref-1"))
	guard.finish("pref-1")

	time.Sleep(30 * time.Millisecond)

	// begin for another token triggers pruning of the expired entry.
	assert.True(t, guard.begin("pref-2"))

	guard.mu.Lock()
	_, stillThere := guard.entries["pref-1"]
	guard.mu.Unlock()
	assert.False(t, stillThere)
}
