package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(8)
	for i := 0; i < 3; i++ {
		q.Enqueue(Event{ID: fmt.Sprintf("evt-%d", i)})
	}
	require.Equal(t, 3, q.Len())

	drained := q.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, "evt-0", drained[0].ID)
	assert.Equal(t, "evt-2", drained[2].ID)
	assert.Equal(t, 0, q.Len())
}

func TestQueueDropsOldestAtCapacity(t *testing.T) {
	q := NewQueue(2)
	q.Enqueue(Event{ID: "a"})
	q.Enqueue(Event{ID: "b"})
	q.Enqueue(Event{ID: "c"})

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "b", drained[0].ID)
	assert.Equal(t, "c", drained[1].ID)
	assert.Equal(t, int64(1), q.Dropped())
}

func TestQueueDrainEmpty(t *testing.T) {
	q := NewQueue(4)
	assert.Empty(t, q.Drain())
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	q := NewQueue(64)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				q.Enqueue(Event{ID: fmt.Sprintf("%d-%d", i, j)})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, q.Len())
	assert.Equal(t, int64(200-64), q.Dropped())
}
