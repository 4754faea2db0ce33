package backend

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowLimiterEnforcesBudget(t *testing.T) {
	limiter := NewWindowLimiter(3, time.Minute)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	remaining, resetIn := limiter.Status()
	assert.Equal(t, 0, remaining)
	assert.Greater(t, resetIn, time.Duration(0))
}

func TestWindowLimiterWindowSlides(t *testing.T) {
	now := time.Unix(1000, 0)
	limiter := NewWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow())

	remaining, _ := limiter.Status()
	assert.Equal(t, 1, remaining)
}

func TestWindowLimiterConcurrentAllowNeverOvershoots(t *testing.T) {
	limiter := NewWindowLimiter(10, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}
