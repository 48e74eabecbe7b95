package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingsGetSet(t *testing.T) {
	c := NewEmbeddings(4, time.Minute)

	_, ok := c.Get("pulsa")
	assert.False(t, ok)

	c.Set("pulsa", []float64{1, 2, 3})
	got, ok := c.Get("pulsa")
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestEmbeddingsEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddings(2, time.Minute)
	c.Set("a", []float64{1})
	c.Set("b", []float64{2})

	// Touch "a" so "b" becomes the eviction candidate.
	_, _ = c.Get("a")
	c.Set("c", []float64{3})

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestEmbeddingsTTLExpiry(t *testing.T) {
	c := NewEmbeddings(4, 10*time.Millisecond)
	c.Set("stale", []float64{1})

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("stale")
	assert.False(t, ok)
}

func TestEmbeddingsOverwriteRefreshes(t *testing.T) {
	c := NewEmbeddings(4, time.Minute)
	c.Set("k", []float64{1})
	c.Set("k", []float64{2})

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []float64{2}, got)
	assert.Equal(t, 1, c.Len())
}

func TestEmbeddingsCapacityNeverExceeded(t *testing.T) {
	c := NewEmbeddings(8, time.Minute)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), []float64{float64(i)})
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
