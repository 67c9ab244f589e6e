/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package queue implements a bounded FIFO of byte elements in a named
// shared memory segment. Unlike a channel, every element written is read
// exactly once, and writers wait or fail while the queue is full.
package queue

import (
	"context"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	uatomic "go.uber.org/atomic"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

// Queue is a process local handle of a shared queue. Any number of
// handles in any number of processes may read and write concurrently.
type Queue struct {
	*layout

	name    string
	pid     uint32
	timeout time.Duration
	poll    time.Duration
	stats   *metrics.QueueStats

	unlinkOnClose bool

	// mapMu keeps the mapping alive, Close takes it exclusively
	mapMu  sync.RWMutex
	closed uatomic.Bool
}

// Create creates the named queue of capacity elements of at most
// maxElementSize bytes each, or attaches to an existing queue with the
// same geometry.
func Create(name string, maxElementSize, capacity int, opts ...Option) (*Queue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := checkParams(maxElementSize, capacity); err != nil {
		return nil, err
	}

	seg, err := shm.CreateOrOpen(name, segmentSize(maxElementSize, capacity))
	if err != nil {
		return nil, err
	}
	if !seg.Created() {
		e, c, err := readHeader(seg)
		if err == nil && (e != maxElementSize || c != capacity) {
			err = errors.Wrapf(types.ErrSizeMismatch, "queue %s holds %d elements of %d bytes, want %d of %d",
				seg.Name(), c, e, capacity, maxElementSize)
		}
		if err != nil {
			seg.Close()
			return nil, err
		}
	}

	l, err := mapLayout(seg, maxElementSize, capacity)
	if err != nil {
		seg.Close()
		if seg.Created() {
			shm.Unlink(seg.Name())
		}
		return nil, err
	}
	if seg.Created() {
		l.hdr.init(maxElementSize, capacity)
	}
	return newQueue(l, o), nil
}

// Open attaches to an existing queue, its geometry is read from the
// segment header.
func Open(name string, opts ...Option) (*Queue, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	var (
		seg *shm.Segment
		err error
	)
	if o.waitCtx != nil {
		seg, err = shm.WaitOpen(o.waitCtx, name, o.pollInterval)
	} else {
		seg, err = shm.OpenExisting(name)
	}
	if err != nil {
		return nil, err
	}

	maxElement, capacity, err := readHeader(seg)
	if err != nil {
		seg.Close()
		return nil, err
	}
	l, err := mapLayout(seg, maxElement, capacity)
	if err != nil {
		seg.Close()
		return nil, err
	}
	return newQueue(l, o), nil
}

func newQueue(l *layout, o *options) *Queue {
	q := &Queue{
		layout:        l,
		name:          l.seg.Name(),
		pid:           uint32(os.Getpid()),
		timeout:       o.timeout,
		poll:          o.pollInterval,
		unlinkOnClose: o.unlinkOnClose,
		stats:         metrics.NewQueueStats(l.seg.Name(), o.metrics),
	}
	runtime.SetFinalizer(q, func(q *Queue) {
		log.DefaultLogger.Alertf(log.AlertShmLeak, "[ripc] [queue] queue %s was not closed before being collected", q.name)
		q.Close()
	})
	log.StartLogger.Infof("[ripc] [queue] queue %s ready, %d elements of %d bytes, created %v, length %d",
		q.name, q.capacity, q.maxElement, l.seg.Created(), q.length())
	return q
}

// TryWrite appends p unless the queue is full. It reports false without
// an error when the queue is full.
func (q *Queue) TryWrite(p []byte) (bool, error) {
	if err := q.checkPayload(p); err != nil {
		return false, err
	}
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return false, types.ErrClosed
	}
	return q.push(p)
}

// Write appends p, waiting while the queue is full.
func (q *Queue) Write(p []byte) error {
	return q.WriteContext(context.Background(), p)
}

// WriteContext is Write bounded by ctx and the handle timeout.
func (q *Queue) WriteContext(ctx context.Context, p []byte) error {
	if err := q.checkPayload(p); err != nil {
		return err
	}
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return types.ErrClosed
	}

	ctx, cancel := q.bound(ctx)
	defer cancel()
	h := q.hdr
	for {
		seen := atomic.LoadUint32(&h.writable)
		ok, err := q.push(p)
		if ok || err != nil {
			return err
		}
		if err := q.wait(ctx, &h.writable, &h.writeWaiters, seen); err != nil {
			return err
		}
	}
}

// TryRead removes and returns the oldest element. It reports false
// without an error when the queue is empty.
func (q *Queue) TryRead() ([]byte, bool, error) {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return nil, false, types.ErrClosed
	}
	return q.pop()
}

// Read removes and returns the oldest element, waiting while the queue
// is empty.
func (q *Queue) Read() ([]byte, error) {
	return q.ReadContext(context.Background())
}

// ReadContext is Read bounded by ctx and the handle timeout.
func (q *Queue) ReadContext(ctx context.Context) ([]byte, error) {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return nil, types.ErrClosed
	}

	ctx, cancel := q.bound(ctx)
	defer cancel()
	h := q.hdr
	for {
		seen := atomic.LoadUint32(&h.readable)
		p, ok, err := q.pop()
		if ok || err != nil {
			return p, err
		}
		if err := q.wait(ctx, &h.readable, &h.readWaiters, seen); err != nil {
			return nil, err
		}
	}
}

// ReadAll removes and returns every queued element, oldest first. It
// does not wait, an empty queue yields an empty slice.
func (q *Queue) ReadAll() ([][]byte, error) {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return nil, types.ErrClosed
	}

	h := q.hdr
	q.lock()
	if atomic.LoadUint32(&h.closed) != 0 {
		q.unlock()
		return nil, errors.Wrapf(types.ErrClosed, "queue %s shut down", q.name)
	}
	head, tail := atomic.LoadUint64(&h.head), atomic.LoadUint64(&h.tail)
	out := make([][]byte, 0, tail-head)
	var n int64
	for ; head != tail; head++ {
		p := q.get(head)
		n += int64(len(p))
		out = append(out, p)
	}
	atomic.StoreUint64(&h.head, head)
	q.unlock()

	if len(out) > 0 {
		q.signal(&h.writable, &h.writeWaiters)
	}
	q.stats.ElementsRead.Inc(int64(len(out)))
	q.stats.BytesOut.Inc(n)
	q.stats.Length.Update(0)
	return out, nil
}

// push appends p under the lock, false when the queue is full.
func (q *Queue) push(p []byte) (bool, error) {
	h := q.hdr
	q.lock()
	if atomic.LoadUint32(&h.closed) != 0 {
		q.unlock()
		return false, errors.Wrapf(types.ErrClosed, "queue %s shut down", q.name)
	}
	head, tail := atomic.LoadUint64(&h.head), atomic.LoadUint64(&h.tail)
	if tail-head >= uint64(q.capacity) {
		q.unlock()
		q.stats.Full.Inc(1)
		return false, nil
	}
	q.put(tail, p)
	// element is visible once tail moves past it
	atomic.StoreUint64(&h.tail, tail+1)
	q.unlock()

	q.signal(&h.readable, &h.readWaiters)
	q.stats.ElementsWritten.Inc(1)
	q.stats.BytesIn.Inc(int64(len(p)))
	q.stats.Length.Update(int64(tail + 1 - head))
	if log.DefaultLogger.GetLogLevel() >= log.TRACE {
		log.DefaultLogger.Tracef("[ripc] [queue] queue %s element %d written, %d bytes", q.name, tail, len(p))
	}
	return true, nil
}

// pop removes the oldest element under the lock, false when empty.
func (q *Queue) pop() ([]byte, bool, error) {
	h := q.hdr
	q.lock()
	if atomic.LoadUint32(&h.closed) != 0 {
		q.unlock()
		return nil, false, errors.Wrapf(types.ErrClosed, "queue %s shut down", q.name)
	}
	head, tail := atomic.LoadUint64(&h.head), atomic.LoadUint64(&h.tail)
	if head == tail {
		q.unlock()
		return nil, false, nil
	}
	p := q.get(head)
	atomic.StoreUint64(&h.head, head+1)
	q.unlock()

	q.signal(&h.writable, &h.writeWaiters)
	q.stats.ElementsRead.Inc(1)
	q.stats.BytesOut.Inc(int64(len(p)))
	q.stats.Length.Update(int64(tail - head - 1))
	return p, true, nil
}

// wait parks on word until it moves away from seen. It returns an error
// when the handle is closed, the queue is shut down or ctx is done.
func (q *Queue) wait(ctx context.Context, word, waiters *uint32, seen uint32) error {
	start := time.Now()
	defer func() {
		q.stats.WaitDuration.Update(time.Since(start).Nanoseconds())
	}()

	atomic.AddUint32(waiters, 1)
	defer atomic.AddUint32(waiters, ^uint32(0))

	backoff := minBackoff
	for atomic.LoadUint32(word) == seen {
		if q.closed.Load() {
			return types.ErrInterrupted
		}
		if atomic.LoadUint32(&q.hdr.closed) != 0 {
			return errors.Wrapf(types.ErrClosed, "queue %s shut down", q.name)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return errors.Wrapf(types.ErrTimeout, "queue %s", q.name)
			}
			return errors.Wrapf(types.ErrInterrupted, "queue %s: %v", q.name, ctx.Err())
		default:
		}

		slice := maxWaitSlice
		if !shm.FutexSupported {
			slice = backoff
			if backoff *= 2; backoff > q.poll {
				backoff = q.poll
			}
		}
		if deadline, ok := ctx.Deadline(); ok {
			if remain := time.Until(deadline); remain < slice {
				slice = remain
			}
		}
		if slice <= 0 {
			continue
		}
		if err := shm.FutexWait(word, seen, slice); err != nil {
			return errors.Wrapf(err, "queue %s wait", q.name)
		}
	}
	return nil
}

func (q *Queue) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout > 0 {
		return context.WithTimeout(ctx, q.timeout)
	}
	return ctx, func() {}
}

func (q *Queue) checkPayload(p []byte) error {
	if len(p) > q.maxElement {
		return errors.Wrapf(types.ErrPayloadTooLarge, "element of %d bytes, max %d", len(p), q.maxElement)
	}
	return nil
}

// Len returns the number of queued elements.
func (q *Queue) Len() int {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return 0
	}
	return q.length()
}

// IsFull reports whether a write would have to wait.
func (q *Queue) IsFull() bool {
	return q.Len() >= q.capacity
}

// Cap returns the number of elements the queue holds.
func (q *Queue) Cap() int {
	return q.capacity
}

// MaxElementSize returns the largest element the queue accepts.
func (q *Queue) MaxElementSize() int {
	return q.maxElement
}

// Name returns the normalized queue name.
func (q *Queue) Name() string {
	return q.name
}

// TotalAllocatedSize returns the size of the whole shared segment.
func (q *Queue) TotalAllocatedSize() uint64 {
	return q.seg.TotalAllocatedSize()
}

// IsClosed reports whether the queue was shut down by any handle or this
// handle was closed.
func (q *Queue) IsClosed() bool {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	return q.closed.Load() || atomic.LoadUint32(&q.hdr.closed) != 0
}

// Shutdown closes the queue for every attached handle. Blocked reads and
// writes in all processes fail with ErrClosed, queued elements are
// dropped.
func (q *Queue) Shutdown() error {
	q.mapMu.RLock()
	defer q.mapMu.RUnlock()
	if q.closed.Load() {
		return types.ErrClosed
	}

	h := q.hdr
	q.lock()
	atomic.StoreUint32(&h.closed, 1)
	q.unlock()
	q.signal(&h.readable, &h.readWaiters)
	q.signal(&h.writable, &h.writeWaiters)

	log.DefaultLogger.Infof("[ripc] [queue] queue %s shut down with %d elements pending", q.name, q.length())
	return nil
}

// Close detaches the handle. Reads and writes blocked on this handle fail
// with ErrInterrupted, other handles are unaffected.
func (q *Queue) Close() error {
	if !q.closed.CAS(false, true) {
		return nil
	}
	runtime.SetFinalizer(q, nil)

	// kick parked waits so they see the flag
	h := q.hdr
	shm.FutexWake(&h.readable, math.MaxInt32)
	shm.FutexWake(&h.writable, math.MaxInt32)

	q.mapMu.Lock()
	defer q.mapMu.Unlock()

	q.stats.Release()
	created := q.seg.Created()
	err := q.seg.Close()
	if err != nil {
		log.DefaultLogger.Alertf(log.AlertShmUnmap, "[ripc] [queue] queue %s unmap failed: %v", q.name, err)
	}
	if q.unlinkOnClose && created {
		if uerr := shm.Unlink(q.name); uerr != nil && !errors.Is(uerr, types.ErrNotFound) {
			log.DefaultLogger.Warnf("[ripc] [queue] queue %s unlink failed: %v", q.name, uerr)
		}
	}
	log.StartLogger.Infof("[ripc] [queue] queue %s detached", q.name)
	return err
}
