// Package queue implements the bounded blocking queue (BQ) that couples
// the accept loop to the worker pool: a fixed-size ring buffer of opaque
// items guarded by a single mutex and two condition variables, one signaled
// on send (wakes a waiting consumer), one on recv (wakes a waiting
// producer).
//
// This is deliberately not built on a Go channel: the ring/mask/predicate
// machinery — full/empty detection through masked indices, one wasted
// slot, explicit wakeups — is the contract here, and a channel would hide
// exactly the mechanism under test.
package queue

import (
	"errors"
	"sync"
)

// ErrCapacity is returned by New when capacity is not a power of two or is
// smaller than 2 (one slot is always wasted to distinguish full from
// empty, so effective capacity is capacity-1).
var ErrCapacity = errors.New("queue: capacity must be a power of two >= 2")

// Queue is a single-producer/multi-consumer-safe (and in fact
// multi-producer-safe) bounded ring buffer of items of type T. The zero
// value is not usable; construct with New.
type Queue[T any] struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	buf      []T
	mask     uint32
	readIdx  uint32
	writeIdx uint32

	closed bool

	sendCount uint64
	recvCount uint64
}

// New creates a Queue with the given capacity, which must be a power of
// two >= 2.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, ErrCapacity
	}
	q := &Queue[T]{
		buf:  make([]T, capacity),
		mask: uint32(capacity - 1),
	}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q, nil
}

func (q *Queue[T]) full() bool {
	return ((q.writeIdx + 1) & q.mask) == q.readIdx
}

func (q *Queue[T]) empty() bool {
	return q.writeIdx == q.readIdx
}

// Send enqueues item, blocking while the queue is full. It wakes exactly
// one waiting consumer on success. Send never fails once the Queue was
// constructed; closing a Queue a party may still be sending to is
// undefined (see Close).
func (q *Queue[T]) Send(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.full() && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return
	}

	q.buf[q.writeIdx] = item
	q.writeIdx = (q.writeIdx + 1) & q.mask
	q.sendCount++

	q.notEmpty.Signal()
}

// TrySend enqueues item without blocking. It returns false if the queue is
// full or closed. TrySend is an additive convenience for the accept loop's
// backpressure policy and admin/metrics surface; the core blocking
// contract is Send/Recv.
func (q *Queue[T]) TrySend(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.full() {
		return false
	}

	q.buf[q.writeIdx] = item
	q.writeIdx = (q.writeIdx + 1) & q.mask
	q.sendCount++

	q.notEmpty.Signal()
	return true
}

// Recv dequeues and returns the next item, blocking while the queue is
// empty. It wakes exactly one waiting producer on success. The ok return
// is false only when the queue was closed and drained.
func (q *Queue[T]) Recv() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.empty() && !q.closed {
		q.notEmpty.Wait()
	}
	if q.empty() && q.closed {
		return item, false
	}

	item = q.buf[q.readIdx]
	var zero T
	q.buf[q.readIdx] = zero // drop reference for GC
	q.readIdx = (q.readIdx + 1) & q.mask
	q.recvCount++

	q.notFull.Signal()
	return item, true
}

// Len returns the number of items currently queued. Introspection only;
// not part of the blocking contract.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int((q.writeIdx - q.readIdx) & q.mask)
}

// Cap returns the effective capacity (capacity-1, since one slot is
// always wasted to distinguish full from empty).
func (q *Queue[T]) Cap() int {
	return int(q.mask)
}

// Stats returns cumulative send/recv counts, for metrics/reporter use.
func (q *Queue[T]) Stats() (sent, received uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sendCount, q.recvCount
}

// Close tears the queue down: it marks the queue closed, wakes every
// blocked Send/Recv waiter, and — if cleanup is non-nil — invokes cleanup
// exactly once for each item still queued and removes those items, so a
// later Recv reports ok=false. With a nil cleanup, queued items stay
// receivable until drained. Close must not be called while
// other parties may still call Send or Recv; doing so is undefined.
func (q *Queue[T]) Close(cleanup func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	if cleanup != nil {
		var zero T
		for idx := q.readIdx; idx != q.writeIdx; idx = (idx + 1) & q.mask {
			cleanup(q.buf[idx])
			q.buf[idx] = zero
		}
		q.readIdx = q.writeIdx
	}

	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}
