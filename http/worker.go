package http

import (
	"bufio"
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	ErrFull  = errors.New("ring buffer is full")
	ErrEmpty = errors.New("ring buffer is empty")
)

// connBuffers are the read and write buffers of one connection.
type connBuffers struct {
	br *bufio.Reader
	bw *bufio.Writer
}

func newConnBuffers() *connBuffers {
	return &connBuffers{
		br: bufio.NewReaderSize(nil, DefaultReadBufferSize),
		bw: bufio.NewWriterSize(nil, DefaultWriteBufferSize),
	}
}

func (b *connBuffers) reset(rw io.ReadWriter) {
	b.br.Reset(rw)
	b.bw.Reset(rw)
}

type connPool interface {
	// acquire returns false when no slot is free.
	acquire() (*connBuffers, bool)
	release(b *connBuffers)
}

// boundedPool hands out at most size buffer sets at a time.
type boundedPool struct {
	ready RingBuffer[*connBuffers]
}

func newBoundedPool(size int) *boundedPool {
	p := &boundedPool{ready: NewRingBuffer[*connBuffers](size)}
	for i := 0; i < size; i++ {
		p.ready.Enqueue(newConnBuffers())
	}
	return p
}

func (p *boundedPool) acquire() (*connBuffers, bool) {
	b, err := p.ready.Dequeue()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (p *boundedPool) release(b *connBuffers) {
	b.reset(nil)
	p.ready.Enqueue(b)
}

type unboundedPool struct {
	pool sync.Pool
}

func newUnboundedPool() *unboundedPool {
	return &unboundedPool{
		pool: sync.Pool{New: func() any { return newConnBuffers() }},
	}
}

func (p *unboundedPool) acquire() (*connBuffers, bool) {
	return p.pool.Get().(*connBuffers), true
}

func (p *unboundedPool) release(b *connBuffers) {
	b.reset(nil)
	p.pool.Put(b)
}

// RingBuffer is a bounded lock-free multi-producer multi-consumer queue.
type RingBuffer[T any] struct {
	buffer []slot[T]
	mask   uint64
	enqPos uint64
	deqPos uint64
}

type slot[T any] struct {
	sequence uint64
	value    T
}

// NewRingBuffer creates a ring buffer holding at least size items.
// The capacity is rounded up to a power of two.
func NewRingBuffer[T any](size int) RingBuffer[T] {
	capacity := 1
	for capacity < size {
		capacity <<= 1
	}

	buf := make([]slot[T], capacity)
	for i := range buf {
		buf[i].sequence = uint64(i)
	}
	return RingBuffer[T]{
		buffer: buf,
		mask:   uint64(capacity - 1),
	}
}

// Enqueue adds an item to the ring buffer
func (q *RingBuffer[T]) Enqueue(val T) error {
	for {
		pos := atomic.LoadUint64(&q.enqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.enqPos, pos, pos+1) {
				slot.value = val
				atomic.StoreUint64(&slot.sequence, pos+1)
				return nil
			}
		} else if delta < 0 {
			return ErrFull
		} else {
			runtime.Gosched()
		}
	}
}

// Dequeue removes and returns the oldest item
func (q *RingBuffer[T]) Dequeue() (T, error) {
	var zero T
	for {
		pos := atomic.LoadUint64(&q.deqPos)
		slot := &q.buffer[pos&q.mask]

		seq := atomic.LoadUint64(&slot.sequence)
		delta := int64(seq) - int64(pos+1)

		if delta == 0 {
			if atomic.CompareAndSwapUint64(&q.deqPos, pos, pos+1) {
				val := slot.value
				slot.value = zero
				atomic.StoreUint64(&slot.sequence, pos+q.mask+1)
				return val, nil
			}
		} else if delta < 0 {
			return zero, ErrEmpty
		} else {
			runtime.Gosched()
		}
	}
}
