package http

import (
	"sync"
	"testing"

	"github.com/freekieb7/httpd/test"
)

func TestRingBufferCapacity(t *testing.T) {
	q := NewRingBuffer[int](3)

	for i := 0; i < 4; i++ {
		test.AssertNoError(t, q.Enqueue(i))
	}
	test.AssertErrorIs(t, q.Enqueue(4), ErrFull)

	for i := 0; i < 4; i++ {
		v, err := q.Dequeue()
		test.AssertNoError(t, err)
		test.AssertEqual(t, i, v)
	}

	_, err := q.Dequeue()
	test.AssertErrorIs(t, err, ErrEmpty)
}

func TestRingBufferConcurrent(t *testing.T) {
	const workers = 8
	const perWorker = 1000

	q := NewRingBuffer[int](workers * perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := q.Enqueue(base + i); err != nil {
					t.Error(err)
					return
				}
			}
		}(w * perWorker)
	}
	wg.Wait()

	seen := make(map[int]bool, workers*perWorker)
	for {
		v, err := q.Dequeue()
		if err != nil {
			break
		}
		if seen[v] {
			t.Fatalf("value %d dequeued twice", v)
		}
		seen[v] = true
	}
	test.AssertEqual(t, workers*perWorker, len(seen))
}

func TestBoundedPool(t *testing.T) {
	pool := newBoundedPool(2)

	a, ok := pool.acquire()
	test.AssertTrue(t, ok, "first slot")
	b, ok := pool.acquire()
	test.AssertTrue(t, ok, "second slot")
	_, ok = pool.acquire()
	test.AssertTrue(t, !ok, "pool exhausted")

	pool.release(a)
	c, ok := pool.acquire()
	test.AssertTrue(t, ok, "slot reused after release")
	test.AssertTrue(t, a == c, "same buffers handed back")

	pool.release(b)
	pool.release(c)
}

func TestUnboundedPool(t *testing.T) {
	pool := newUnboundedPool()

	for i := 0; i < 100; i++ {
		b, ok := pool.acquire()
		if !ok || b.br == nil || b.bw == nil {
			t.Fatal("unbounded pool must always hand out buffers")
		}
	}
}
