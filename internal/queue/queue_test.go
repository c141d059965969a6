package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// testItem is a simple struct for testing the generic containers
type testItem struct {
	ID   int
	Name string
}

func TestQueue_PushPop(t *testing.T) {
	q := New[testItem](0)

	_, ok := q.Pop()
	assert.False(t, ok)

	assert.Zero(t, q.Push(testItem{ID: 1, Name: "first"}))
	assert.Zero(t, q.Push(testItem{ID: 2}, testItem{ID: 3}))
	assert.Equal(t, 3, q.Len())

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, testItem{ID: 1, Name: "first"}, item)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_LimitDropsOldest(t *testing.T) {
	q := New[int](3)

	assert.Equal(t, 0, q.Push(1, 2))
	assert.Equal(t, 2, q.Push(3, 4, 5))
	assert.Equal(t, []int{3, 4, 5}, q.Drain())
	assert.Equal(t, 2, q.Dropped())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Drain(t *testing.T) {
	q := New[int](0)
	assert.Empty(t, q.Drain())

	q.Push(1, 2, 3)
	assert.Equal(t, []int{1, 2, 3}, q.Drain())
	assert.Zero(t, q.Len())

	q.Push(4)
	assert.Equal(t, []int{4}, q.Drain())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int](0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(base*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}

func TestRing_Basics(t *testing.T) {
	r := NewRing[testItem](3)
	assert.Equal(t, 3, r.Cap())
	assert.Zero(t, r.Len())

	_, ok := r.Newest()
	assert.False(t, ok)
	_, ok = r.Oldest()
	assert.False(t, ok)

	r.Push(testItem{ID: 1})
	r.Push(testItem{ID: 2})
	oldest, _ := r.Oldest()
	newest, _ := r.Newest()
	assert.Equal(t, 1, oldest.ID)
	assert.Equal(t, 2, newest.ID)

	r.Push(testItem{ID: 3})
	r.Push(testItem{ID: 4})
	assert.Equal(t, 3, r.Len())
	oldest, _ = r.Oldest()
	newest, _ = r.Newest()
	assert.Equal(t, 2, oldest.ID)
	assert.Equal(t, 4, newest.ID)

	_, ok = r.At(3)
	assert.False(t, ok)
	_, ok = r.At(-1)
	assert.False(t, ok)

	r.Reset()
	assert.Zero(t, r.Len())
	_, ok = r.Newest()
	assert.False(t, ok)
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing[int](0)
	assert.Equal(t, 1, r.Cap())
	r.Push(5)
	r.Push(6)
	v, ok := r.Oldest()
	require.True(t, ok)
	assert.Equal(t, 6, v)
}

func TestRing_KeepsNewestInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 16).Draw(t, "capacity")
		values := rapid.SliceOf(rapid.Int()).Draw(t, "values")

		r := NewRing[int](capacity)
		for _, v := range values {
			r.Push(v)
		}

		want := values
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		if r.Len() != len(want) {
			t.Fatalf("len %d, want %d", r.Len(), len(want))
		}
		for i, v := range want {
			got, ok := r.At(i)
			if !ok || got != v {
				t.Fatalf("At(%d) = %d,%v want %d", i, got, ok, v)
			}
		}
	})
}
