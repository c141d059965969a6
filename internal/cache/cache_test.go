package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedEntity struct {
	Name  string
	Count int
}

func TestEntityCache_SetAndGet(t *testing.T) {
	c := NewEntityCache[int, trackedEntity]()

	_, ok := c.Get(3)
	assert.False(t, ok)

	c.Set(3, trackedEntity{Name: "Sarge"})
	got, ok := c.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Sarge", got.Name)

	c.Set(3, trackedEntity{Name: "Major"})
	got, _ = c.Get(3)
	assert.Equal(t, "Major", got.Name)
	assert.Equal(t, 1, c.Len())
}

func TestEntityCache_GetOrCreate(t *testing.T) {
	c := NewEntityCache[uint16, *trackedEntity]()

	calls := 0
	create := func() *trackedEntity {
		calls++
		return &trackedEntity{Name: "new"}
	}

	a := c.GetOrCreate(7, create)
	b := c.GetOrCreate(7, create)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestEntityCache_DeleteKeysReset(t *testing.T) {
	c := NewEntityCache[int, int]()
	for _, id := range []int{9, 2, 5} {
		c.Set(id, id*10)
	}
	assert.Equal(t, []int{2, 5, 9}, c.Keys())

	c.Delete(5)
	c.Delete(42)
	assert.Equal(t, []int{2, 9}, c.Keys())

	c.Reset()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Keys())
}

func TestEntityCache_ConcurrentAccess(t *testing.T) {
	c := NewEntityCache[int, *trackedEntity]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			c.GetOrCreate(id%5, func() *trackedEntity { return &trackedEntity{} })
		}(i)
		go func(id int) {
			defer wg.Done()
			c.Get(id % 5)
			c.Keys()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Value())
	assert.Equal(t, 105, c.Add(5))
}
