package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFIFO(t *testing.T, q Queue[int]) {
	t.Helper()

	assert.True(t, q.IsEmpty())
	assert.Zero(t, q.Length())

	_, ok := q.Dequeue()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 10, q.Length())
	assert.False(t, q.IsEmpty())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, 0, head)
	assert.Equal(t, 10, q.Length(), "peek must not consume")

	for i := 0; i < 10; i++ {
		item, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
	assert.True(t, q.IsEmpty())

	q.Enqueue(42)
	q.Reset()
	assert.True(t, q.IsEmpty())
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestSliceQueue(t *testing.T) {
	testFIFO(t, NewSliceQueue[int](4))
}

func TestLockFreeQueue(t *testing.T) {
	testFIFO(t, NewLockFreeQueue[int]())
}

func TestLockFreeQueue_Concurrent(t *testing.T) {
	const (
		producers   = 4
		perProducer = 1000
	)

	q := NewLockFreeQueue[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base + i)
			}
		}(p * perProducer)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Length())

	seen := make(map[int]bool, producers*perProducer)
	for {
		item, ok := q.Dequeue()
		if !ok {
			break
		}
		require.False(t, seen[item], "item %d dequeued twice", item)
		seen[item] = true
	}

	assert.Len(t, seen, producers*perProducer)
}
