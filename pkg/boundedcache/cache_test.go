package boundedcache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rohmanhakim/linkmeta/pkg/boundedcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := boundedcache.New[string, int](0)
	assert.ErrorIs(t, err, boundedcache.ErrInvalidCapacity)

	_, err = boundedcache.New[string, int](-3)
	assert.ErrorIs(t, err, boundedcache.ErrInvalidCapacity)
}

func TestGet_CountsHitsAndMisses(t *testing.T) {
	c, err := boundedcache.New[string, int](2)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestSet_OverwriteDoesNotEvict(t *testing.T) {
	c, err := boundedcache.New[string, int](2)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("a", 2)

	v, _ := c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestSet_OverflowEvictsLeastRecentlyUsed(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 17} {
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			c, err := boundedcache.New[string, int](capacity)
			require.NoError(t, err)

			for i := 0; i < capacity; i++ {
				c.Set(fmt.Sprintf("k%d", i), i)
			}
			// touching the oldest makes k1 (or nothing, at capacity 1) the LRU
			if capacity > 1 {
				_, ok := c.Get("k0")
				require.True(t, ok)
			}

			c.Set("new", 99)

			assert.Equal(t, capacity, c.Len())
			assert.Equal(t, uint64(1), c.Stats().Evictions)

			expectedEvicted := "k0"
			if capacity > 1 {
				expectedEvicted = "k1"
			}
			_, ok := c.Peek(expectedEvicted)
			assert.False(t, ok, "expected %s to be evicted", expectedEvicted)

			_, ok = c.Peek("new")
			assert.True(t, ok)
		})
	}
}

func TestSet_EvictionCountsOncePerInsertion(t *testing.T) {
	c, err := boundedcache.New[int, int](3)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		c.Set(i, i)
	}

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(7), c.Stats().Evictions)
	assert.Equal(t, []int{7, 8, 9}, c.Keys())
}

func TestResize_EvictsDownImmediately(t *testing.T) {
	c, err := boundedcache.New[int, string](5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		c.Set(i, "v")
	}

	require.NoError(t, c.Resize(2))

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, 2, stats.Capacity)
	assert.Equal(t, uint64(3), stats.Evictions)
	assert.Equal(t, []int{3, 4}, c.Keys())

	assert.ErrorIs(t, c.Resize(0), boundedcache.ErrInvalidCapacity)
}

func TestResize_Grow(t *testing.T) {
	c, err := boundedcache.New[int, int](1)
	require.NoError(t, err)
	require.NoError(t, c.Resize(3))

	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestClear(t *testing.T) {
	c, err := boundedcache.New[string, int](3)
	require.NoError(t, err)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, 3, stats.Capacity)
	assert.Equal(t, uint64(0), stats.Evictions)
}

func TestStats_EmptyHitRate(t *testing.T) {
	c, err := boundedcache.New[string, int](1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Stats().HitRate)
}

func TestConcurrentAccess(t *testing.T) {
	c, err := boundedcache.New[int, int](16)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set(i%40, i)
				c.Get((i + w) % 40)
				if i%100 == 0 {
					_ = c.Resize(8 + w)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), c.Capacity())
}
