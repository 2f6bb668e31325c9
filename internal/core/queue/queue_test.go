package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	for i := 0; i < 100; i++ {
		v, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestTryPopEmpty(t *testing.T) {
	q := New[string]()
	v, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestWaitPopBlocksUntilPush(t *testing.T) {
	q := New[int]()
	got := make(chan int, 1)

	go func() {
		got <- q.WaitPop()
	}()

	select {
	case <-got:
		t.Fatal("WaitPop returned before anything was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	q.Push(42)
	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("WaitPop did not wake after push")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		for received < producers*perProducer {
			q.WaitPop()
			received++
		}
		close(done)
	}()

	wg.Wait()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer drained only %d of %d items", received, producers*perProducer)
	}
}
