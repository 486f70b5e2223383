package llm

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestSuggestionCache(t *testing.T) {
	cache := newSuggestionCache(time.Minute)
	defer cache.Close()

	_, found := cache.get("missing")
	assert.False(t, found)

	suggestion := model.Suggestion{Label: "餐饮 - 三餐", Fallback: "餐饮"}
	cache.set("k", suggestion)

	got, found := cache.get("k")
	assert.True(t, found)
	assert.Equal(t, suggestion, got)
	assert.Equal(t, 1, cache.size())
}

func TestSuggestionCache_Expiry(t *testing.T) {
	cache := newSuggestionCache(time.Minute)
	defer cache.Close()

	now := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.set("k", model.Suggestion{Label: "交通"})
	now = now.Add(2 * time.Minute)

	_, found := cache.get("k")
	assert.False(t, found)

	cache.evictExpired()
	assert.Equal(t, 0, cache.size())
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.Close()

	assert.True(t, rl.tryAcquire())
	assert.True(t, rl.tryAcquire())
	assert.False(t, rl.tryAcquire())
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := newRateLimiter(1)
	defer rl.Close()
	assert.True(t, rl.tryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.wait(ctx))
}
