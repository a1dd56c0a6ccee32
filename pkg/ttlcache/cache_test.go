package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock steps time manually.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(capacity int, ttl time.Duration) (*Cache[string, int], *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return New[string, int](capacity, ttl, WithClock[string, int](clock.now)), clock
}

func TestCache_PutGet(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	c.Put("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(4, 5*time.Second)

	c.Put("a", 1)
	clock.advance(4 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.advance(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_PutRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(4, 5*time.Second)

	c.Put("a", 1)
	clock.advance(4 * time.Second)
	c.Put("a", 2)
	clock.advance(4 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now most recently used
	c.Put("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	c.Put("a", 1)
	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)

	// reusable after clearing
	c.Put("c", 3)
	v, ok := c.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestCache_PurgeExpired(t *testing.T) {
	c, clock := newTestCache(8, 5*time.Second)

	c.Put("a", 1)
	c.Put("b", 2)
	clock.advance(6 * time.Second)
	c.Put("c", 3)

	assert.Equal(t, 2, c.PurgeExpired())
	assert.Equal(t, 1, c.Len())
}

func TestNew_PanicsOnBadArgs(t *testing.T) {
	assert.Panics(t, func() { New[string, int](0, time.Second) })
	assert.Panics(t, func() { New[string, int](1, 0) })
}
