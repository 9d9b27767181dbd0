package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(2 * time.Second)
	t0 := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Allow(t0))
	assert.False(t, d.Allow(t0.Add(500*time.Millisecond)))
	assert.False(t, d.Allow(t0.Add(1900*time.Millisecond)))
	assert.True(t, d.Allow(t0.Add(2*time.Second)))
}

func TestDebouncerZeroIntervalPassesEverything(t *testing.T) {
	d := NewDebouncer(0)
	t0 := time.Now()

	assert.True(t, d.Allow(t0))
	assert.True(t, d.Allow(t0))
}
