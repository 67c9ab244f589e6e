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
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	uatomic "go.uber.org/atomic"
	"golang.org/x/time/rate"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

// Writer publishes frames into a named channel. A channel has at most one
// writer at a time; the header writer token enforces it across processes.
type Writer struct {
	*layout

	name     string
	capacity int
	rate     int
	pid      uint32

	unlinkOnClose bool
	limiter       *rate.Limiter
	stats         *metrics.WriterStats

	mu      sync.Mutex
	closed  uatomic.Bool
	lastGen uatomic.Uint64
}

// NewWriter creates the named channel with capacity bytes per frame, or
// attaches to an existing channel of the same capacity.
func NewWriter(name string, capacity int, opts ...Option) (*Writer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if o.throttle && o.rate <= 0 {
		return nil, errors.New("throttle requires a rate")
	}

	seg, err := shm.CreateOrOpen(name, segmentSize(capacity))
	if err != nil {
		return nil, err
	}

	w, err := newWriter(seg, capacity, o)
	if err != nil {
		seg.Close()
		if seg.Created() {
			shm.Unlink(seg.Name())
		}
		return nil, err
	}

	runtime.SetFinalizer(w, func(w *Writer) {
		log.DefaultLogger.Alertf(log.AlertShmLeak, "[ripc] [writer] channel %s was not closed before being collected", w.name)
		w.Close()
	})

	log.StartLogger.Infof("[ripc] [writer] channel %s ready, capacity %d, rate %d, created %v, generation %d",
		w.name, capacity, w.rate, seg.Created(), w.lastGen.Load())
	return w, nil
}

func newWriter(seg *shm.Segment, capacity int, o *options) (*Writer, error) {
	if !seg.Created() {
		existing, err := readHeaderCapacity(seg)
		if err != nil {
			return nil, err
		}
		if existing != capacity {
			return nil, errors.Wrapf(types.ErrSizeMismatch, "channel %s capacity %d, want %d", seg.Name(), existing, capacity)
		}
	}

	l, err := mapLayout(seg, capacity)
	if err != nil {
		return nil, err
	}
	if seg.Created() {
		l.hdr.init(capacity, uint32(o.rate))
	}

	w := &Writer{
		layout:        l,
		name:          seg.Name(),
		capacity:      capacity,
		rate:          o.rate,
		pid:           uint32(os.Getpid()),
		unlinkOnClose: o.unlinkOnClose,
	}
	if err := w.acquireToken(); err != nil {
		return nil, err
	}
	// a writer that died mid-copy leaves its buffer seq odd
	for i := range l.hdr.seq {
		if s := atomic.LoadUint64(&l.hdr.seq[i]); s&1 != 0 {
			atomic.StoreUint64(&l.hdr.seq[i], s+1)
		}
	}

	if o.rate > 0 {
		atomic.StoreUint32(&l.hdr.rate, uint32(o.rate))
	}
	if o.throttle {
		w.limiter = rate.NewLimiter(rate.Limit(o.rate), 1)
	}
	// a previous writer may have closed the channel
	atomic.StoreUint32(&l.hdr.closed, 0)
	w.lastGen.Store(atomic.LoadUint64(&l.hdr.generation))
	w.stats = metrics.NewWriterStats(w.name, o.metrics)
	return w, nil
}

// acquireToken claims the writer token, taking it over from a writer
// process that no longer exists.
func (w *Writer) acquireToken() error {
	token := &w.hdr.writerPID
	for {
		if atomic.CompareAndSwapUint32(token, 0, w.pid) {
			return nil
		}
		owner := atomic.LoadUint32(token)
		if owner == 0 {
			continue
		}
		if owner == w.pid || shm.ProcessAlive(int(owner)) {
			return errors.Wrapf(types.ErrWriterBusy, "channel %s is owned by pid %d", w.name, owner)
		}
		if atomic.CompareAndSwapUint32(token, owner, w.pid) {
			log.StartLogger.Alertf(log.AlertWriterToken, "[ripc] [writer] channel %s took over writer token of dead pid %d", w.name, owner)
			return nil
		}
	}
}

// Write publishes p as the next frame. A payload larger than Size is
// rejected with ErrPayloadTooLarge and the channel is left untouched.
func (w *Writer) Write(p []byte) error {
	return w.WriteContext(context.Background(), p)
}

// WriteContext is Write with a context bounding the throttle wait.
func (w *Writer) WriteContext(ctx context.Context, p []byte) error {
	if w.closed.Load() {
		return types.ErrClosed
	}
	if len(p) > w.capacity {
		w.stats.WritesRejected.Inc(1)
		return errors.Wrapf(types.ErrPayloadTooLarge, "payload of %d bytes, capacity %d", len(p), w.capacity)
	}
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "channel %s throttle", w.name)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return types.ErrClosed
	}

	start := time.Now()
	h := w.hdr
	next := atomic.LoadUint64(&h.generation) + 1
	idx := next & 1

	// seq is odd while the buffer is being rewritten
	busy := atomic.LoadUint64(&h.seq[idx]) | 1
	atomic.StoreUint64(&h.seq[idx], busy)
	copy(w.bufs[idx], p)
	atomic.StoreUint64(&h.length[idx], uint64(len(p)))
	atomic.StoreUint64(&h.seq[idx], busy+1)

	// publish point
	atomic.StoreUint64(&h.generation, next)
	w.wake()

	w.lastGen.Store(next)
	w.stats.FramesWritten.Inc(1)
	w.stats.BytesWritten.Inc(int64(len(p)))
	w.stats.LastGeneration.Update(int64(next))
	w.stats.WriteDuration.Update(time.Since(start).Nanoseconds())

	if log.DefaultLogger.GetLogLevel() >= log.TRACE {
		log.DefaultLogger.Tracef("[ripc] [writer] channel %s published generation %d, %d bytes", w.name, next, len(p))
	}
	return nil
}

func (w *Writer) wake() {
	atomic.AddUint32(&w.hdr.notify, 1)
	if atomic.LoadUint32(&w.hdr.waiters) == 0 {
		return
	}
	if err := shm.FutexWake(&w.hdr.notify, math.MaxInt32); err != nil {
		log.DefaultLogger.Warnf("[ripc] [writer] channel %s wake readers failed: %v", w.name, err)
	}
}

// Size returns the largest payload Write accepts.
func (w *Writer) Size() int {
	return w.capacity
}

// TotalAllocatedSize returns the size of the whole shared segment.
func (w *Writer) TotalAllocatedSize() uint64 {
	return w.seg.TotalAllocatedSize()
}

// Name returns the normalized channel name.
func (w *Writer) Name() string {
	return w.name
}

// Rate returns the expected frames per second, 0 when unset.
func (w *Writer) Rate() int {
	return w.rate
}

// LastWrittenGeneration returns the generation of the last frame this
// writer published.
func (w *Writer) LastWrittenGeneration() uint64 {
	return w.lastGen.Load()
}

// Close marks the channel closed, wakes blocked readers, releases the
// writer token and unmaps the segment. The last published frame stays
// readable by attached readers.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed.CAS(false, true) {
		return nil
	}
	runtime.SetFinalizer(w, nil)

	atomic.StoreUint32(&w.hdr.closed, 1)
	w.wake()
	atomic.CompareAndSwapUint32(&w.hdr.writerPID, w.pid, 0)
	w.stats.Release()

	created := w.seg.Created()
	err := w.seg.Close()
	if err != nil {
		log.DefaultLogger.Alertf(log.AlertShmUnmap, "[ripc] [writer] channel %s unmap failed: %v", w.name, err)
	}
	if w.unlinkOnClose && created {
		if uerr := shm.Unlink(w.name); uerr != nil && !errors.Is(uerr, types.ErrNotFound) {
			log.DefaultLogger.Warnf("[ripc] [writer] channel %s unlink failed: %v", w.name, uerr)
		}
	}

	log.StartLogger.Infof("[ripc] [writer] channel %s closed at generation %d", w.name, w.lastGen.Load())
	return err
}
