package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBucket(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("k", 3, 0), "request %d should pass", i)
	}
	assert.False(t, l.Allow("k", 3, 0))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("a", 1, 0))
	assert.False(t, l.Allow("a", 1, 0))
	assert.True(t, l.Allow("b", 1, 0))
}

func TestAllowRefills(t *testing.T) {
	l := New()

	// Drain the bucket, then backdate its last refill to simulate elapsed time.
	assert.True(t, l.Allow("k", 1, 1))
	assert.False(t, l.Allow("k", 1, 1))

	l.mu.Lock()
	b := l.m["k"]
	b.last = b.last.Add(-2 * time.Second)
	l.mu.Unlock()

	assert.True(t, l.Allow("k", 1, 1))
}
