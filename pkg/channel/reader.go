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

package channel

import (
	"context"
	"math"
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

const (
	snapshotSpins = 64
	minBackoff    = 50 * time.Microsecond
)

// snapshotStall bounds how long a read waits for a buffer whose seq
// stays odd, far above the copy time of any frame.
var snapshotStall = time.Second

// Reader attaches to a channel and returns its latest frame. Reads on
// one Reader are serialized; Close may be called from any goroutine and
// interrupts a blocked read.
type Reader struct {
	*layout

	name     string
	capacity int
	timeout  time.Duration
	poll     time.Duration
	stats    *metrics.ReaderStats

	// readMu serializes reads and guards current
	readMu  sync.Mutex
	current *Frame

	// mapMu keeps the mapping alive, Close takes it exclusively
	mapMu   sync.RWMutex
	closed  uatomic.Bool
	lastGen uatomic.Uint64
}

// NewReader attaches to an existing channel. Without WithWaitForSegment
// an absent channel fails with ErrNotFound.
func NewReader(name string, opts ...Option) (*Reader, error) {
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

	capacity, err := readHeaderCapacity(seg)
	if err != nil {
		seg.Close()
		return nil, err
	}
	l, err := mapLayout(seg, capacity)
	if err != nil {
		seg.Close()
		return nil, err
	}

	r := &Reader{
		layout:   l,
		name:     seg.Name(),
		capacity: capacity,
		timeout:  o.timeout,
		poll:     o.pollInterval,
		stats:    metrics.NewReaderStats(seg.Name(), o.metrics),
	}
	atomic.AddUint32(&l.hdr.readers, 1)

	runtime.SetFinalizer(r, func(r *Reader) {
		log.DefaultLogger.Alertf(log.AlertShmLeak, "[ripc] [reader] channel %s was not closed before being collected", r.name)
		r.Close()
	})

	log.StartLogger.Infof("[ripc] [reader] attached to channel %s, capacity %d, generation %d",
		r.name, capacity, atomic.LoadUint64(&l.hdr.generation))
	return r, nil
}

// ReadInPlace returns the latest frame without copying it. When block is
// true it first waits for a generation newer than the last one this
// reader returned. The frame is only usable until the next call on r.
func (r *Reader) ReadInPlace(block bool) (*Frame, error) {
	return r.ReadInPlaceContext(context.Background(), block)
}

// ReadInPlaceContext is ReadInPlace with a context bounding the wait.
func (r *Reader) ReadInPlaceContext(ctx context.Context, block bool) (*Frame, error) {
	r.readMu.Lock()
	defer r.readMu.Unlock()
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()

	f, err := r.acquire(ctx, block)
	if err != nil {
		return nil, err
	}
	r.current = f
	return f, nil
}

// Read returns a copy of the latest frame, see ReadInPlace for block.
func (r *Reader) Read(block bool) ([]byte, error) {
	return r.ReadContext(context.Background(), block)
}

// ReadContext is Read with a context bounding the wait.
func (r *Reader) ReadContext(ctx context.Context, block bool) ([]byte, error) {
	r.readMu.Lock()
	defer r.readMu.Unlock()
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()

	f, err := r.acquire(ctx, block)
	for err == nil {
		out := make([]byte, f.Len())
		copy(out, f.data)
		if f.Valid() {
			f.expire()
			r.stats.BytesCopied.Inc(int64(len(out)))
			return out, nil
		}
		// the writer lapped us during the copy, take the newer frame
		f.expire()
		f, err = r.retake(ctx)
	}
	return nil, err
}

// retake replaces a frame the writer overwrote during a copy. The frame
// was already counted, only the last seen generation moves.
func (r *Reader) retake(ctx context.Context) (*Frame, error) {
	r.stats.ReadRetries.Inc(1)
	f, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	r.lastGen.Store(f.generation)
	r.stats.LastGeneration.Update(int64(f.generation))
	return f, nil
}

// TryRead returns the latest frame and true if it is newer than the last
// one this reader returned, or nil and false otherwise.
func (r *Reader) TryRead() (*Frame, bool, error) {
	r.readMu.Lock()
	defer r.readMu.Unlock()
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()

	if r.closed.Load() {
		return nil, false, types.ErrClosed
	}
	if atomic.LoadUint64(&r.hdr.generation) == r.lastGen.Load() {
		r.current.expire()
		r.current = nil
		return nil, false, nil
	}
	f, err := r.acquire(context.Background(), false)
	if err != nil {
		return nil, false, err
	}
	r.current = f
	return f, true, nil
}

// acquire must be called with readMu and mapMu held.
func (r *Reader) acquire(ctx context.Context, block bool) (*Frame, error) {
	if r.closed.Load() {
		return nil, errors.Wrapf(types.ErrClosed, "reader of channel %s", r.name)
	}
	r.current.expire()
	r.current = nil

	if block {
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		if err := r.waitGeneration(ctx, r.lastGen.Load()); err != nil {
			return nil, err
		}
	}

	f, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	r.observe(f.generation)
	return f, nil
}

// snapshot returns a view of the published buffer. A buffer whose seq is
// odd, or changes while the view is taken, is being rewritten. It gives up
// when the reader is closed, ctx is done or the buffer stays busy for
// longer than snapshotStall.
func (r *Reader) snapshot(ctx context.Context) (*Frame, error) {
	h := r.hdr
	var stallAt time.Time
	for spins := 0; ; spins++ {
		g := atomic.LoadUint64(&h.generation)
		if g == 0 {
			return emptyFrame, nil
		}
		idx := g & 1
		s := atomic.LoadUint64(&h.seq[idx])
		if s&1 == 0 {
			n := atomic.LoadUint64(&h.length[idx])
			if atomic.LoadUint64(&h.seq[idx]) == s && atomic.LoadUint64(&h.generation) < g+2 {
				if n > uint64(r.capacity) {
					return nil, errors.Wrapf(types.ErrInvalidSegment, "channel %s frame length %d exceeds capacity %d", r.name, n, r.capacity)
				}
				return &Frame{
					generation: g,
					data:       r.bufs[idx][:n:n],
					seq:        &h.seq[idx],
					seqValue:   s,
				}, nil
			}
		}
		r.stats.ReadRetries.Inc(1)
		if spins < snapshotSpins {
			continue
		}
		if r.closed.Load() {
			return nil, errors.Wrapf(types.ErrInterrupted, "channel %s reader closed", r.name)
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, errors.Wrapf(types.ErrTimeout, "channel %s buffer busy", r.name)
			}
			return nil, errors.Wrapf(types.ErrInterrupted, "channel %s: %v", r.name, err)
		}
		if stallAt.IsZero() {
			stallAt = time.Now().Add(snapshotStall)
		} else if time.Now().After(stallAt) {
			return nil, errors.Wrapf(types.ErrInvalidSegment, "channel %s buffer %d stuck at seq %d", r.name, idx, s)
		}
		runtime.Gosched()
	}
}

func (r *Reader) observe(g uint64) {
	last := r.lastGen.Load()
	if last > 0 && g > last+1 {
		r.stats.FramesSkipped.Inc(int64(g - last - 1))
	}
	r.lastGen.Store(g)
	r.stats.FramesRead.Inc(1)
	r.stats.LastGeneration.Update(int64(g))
}

// waitGeneration parks until the published generation differs from last.
func (r *Reader) waitGeneration(ctx context.Context, last uint64) error {
	h := r.hdr
	if atomic.LoadUint64(&h.generation) != last {
		return nil
	}

	start := time.Now()
	defer func() {
		r.stats.WaitDuration.Update(time.Since(start).Nanoseconds())
	}()

	atomic.AddUint32(&h.waiters, 1)
	defer atomic.AddUint32(&h.waiters, ^uint32(0))

	backoff := minBackoff
	for {
		// notify is sampled before the checks, a publish after this
		// point changes it and the futex wait returns at once.
		seen := atomic.LoadUint32(&h.notify)

		if r.closed.Load() {
			return types.ErrInterrupted
		}
		if atomic.LoadUint64(&h.generation) != last {
			return nil
		}
		if atomic.LoadUint32(&h.closed) != 0 {
			return errors.Wrapf(types.ErrClosed, "channel %s closed by writer", r.name)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				r.stats.ReadTimeouts.Inc(1)
				return errors.Wrapf(types.ErrTimeout, "channel %s no new frame after generation %d", r.name, last)
			}
			return errors.Wrapf(types.ErrInterrupted, "channel %s: %v", r.name, ctx.Err())
		default:
		}

		slice := maxWaitSlice
		if !shm.FutexSupported {
			slice = backoff
			if backoff *= 2; backoff > r.poll {
				backoff = r.poll
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
		if err := shm.FutexWait(&h.notify, seen, slice); err != nil {
			return errors.Wrapf(err, "channel %s wait", r.name)
		}
	}
}

// NewVersionAvailable reports whether a generation newer than the last
// one returned by this reader has been published.
func (r *Reader) NewVersionAvailable() bool {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	if r.closed.Load() {
		return false
	}
	return atomic.LoadUint64(&r.hdr.generation) != r.lastGen.Load()
}

// LastReadGeneration returns the generation of the last frame returned.
func (r *Reader) LastReadGeneration() uint64 {
	return r.lastGen.Load()
}

// IsClosed reports whether the writer closed the channel or this reader
// was closed.
func (r *Reader) IsClosed() bool {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	if r.closed.Load() {
		return true
	}
	return atomic.LoadUint32(&r.hdr.closed) != 0
}

// Rate returns the frame rate hint published by the writer.
func (r *Reader) Rate() int {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	if r.closed.Load() {
		return 0
	}
	return int(atomic.LoadUint32(&r.hdr.rate))
}

// Size returns the per frame capacity of the channel.
func (r *Reader) Size() int {
	return r.capacity
}

// TotalAllocatedSize returns the size of the whole shared segment.
func (r *Reader) TotalAllocatedSize() uint64 {
	return r.seg.TotalAllocatedSize()
}

// Name returns the normalized channel name.
func (r *Reader) Name() string {
	return r.name
}

// Close detaches the reader. A read blocked in another goroutine returns
// ErrInterrupted, and frames returned earlier become invalid.
func (r *Reader) Close() error {
	if !r.closed.CAS(false, true) {
		return nil
	}
	runtime.SetFinalizer(r, nil)

	// kick parked readers so the blocked read sees the flag
	shm.FutexWake(&r.hdr.notify, math.MaxInt32)

	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	r.current.expire()
	r.current = nil
	atomic.AddUint32(&r.hdr.readers, ^uint32(0))
	r.stats.Release()

	err := r.seg.Close()
	if err != nil {
		log.DefaultLogger.Alertf(log.AlertShmUnmap, "[ripc] [reader] channel %s unmap failed: %v", r.name, err)
	}
	log.StartLogger.Infof("[ripc] [reader] detached from channel %s at generation %d", r.name, r.lastGen.Load())
	return err
}
