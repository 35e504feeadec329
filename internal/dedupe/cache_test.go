package dedupe

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_AddContains(t *testing.T) {
	c := New(time.Minute, 0)
	key := Key{Set: "telemetry", Name: "incoming/a.json"}

	assert.False(t, c.Contains(key))

	c.Add(key)
	assert.True(t, c.Contains(key))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, time.Minute, c.TTL())
}

func TestCache_KeysAreScopedBySet(t *testing.T) {
	c := New(time.Minute, 0)

	c.Add(Key{Set: "a", Name: "data.json"})

	assert.True(t, c.Contains(Key{Set: "a", Name: "data.json"}))
	assert.False(t, c.Contains(Key{Set: "b", Name: "data.json"}), "same file name in another set must not collide")
}

func TestCache_Expiry(t *testing.T) {
	c := New(50*time.Millisecond, 0)
	key := Key{Set: "s", Name: "c.json"}

	c.Add(key)
	require.True(t, c.Contains(key))

	require.Eventually(t, func() bool {
		return !c.Contains(key)
	}, 2*time.Second, 10*time.Millisecond, "entry should expire after its TTL")
}

func TestCache_ReAddAfterExpiry(t *testing.T) {
	c := New(50*time.Millisecond, 0)
	key := Key{Set: "s", Name: "c.json"}

	c.Add(key)
	time.Sleep(80 * time.Millisecond)
	require.False(t, c.Contains(key))

	c.Add(key)
	assert.True(t, c.Contains(key))
}

func TestCache_Remove(t *testing.T) {
	c := New(time.Minute, 0)
	key := Key{Set: "s", Name: "x"}

	c.Add(key)
	c.Remove(key)
	assert.False(t, c.Contains(key))
}

func TestCache_MaxEntries(t *testing.T) {
	c := New(time.Minute, 2)

	c.Add(Key{Set: "s", Name: "1"})
	c.Add(Key{Set: "s", Name: "2"})
	c.Add(Key{Set: "s", Name: "3"})

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(Key{Set: "s", Name: "1"}), "oldest entry is evicted first")
	assert.True(t, c.Contains(Key{Set: "s", Name: "3"}))
}

func TestCache_Concurrent(t *testing.T) {
	c := New(time.Minute, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(set string) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Key{Set: set, Name: "file"}
				if !c.Contains(key) {
					c.Add(key)
				}
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	assert.Equal(t, 8, c.Len())
}
