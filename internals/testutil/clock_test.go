package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	assert.Equal(t, start, c.Now())

	got := c.Advance(3 * time.Hour)
	assert.Equal(t, start.Add(3*time.Hour), got)
	assert.Equal(t, got, c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()
	assert.Equal(t, start.Add(50*time.Second), c.Now())
}
