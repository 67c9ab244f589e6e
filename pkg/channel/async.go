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
	"sync"

	"github.com/pkg/errors"
	uatomic "go.uber.org/atomic"
	"mosn.io/pkg/utils"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/types"
)

// AsyncWriter publishes frames from a background goroutine. It holds at
// most one pending frame: a frame submitted while the previous one is
// still pending replaces it, so readers only ever miss stale frames.
type AsyncWriter struct {
	w *Writer

	mu      sync.Mutex
	pending []byte
	has     bool
	stopped bool
	err     error

	signal  chan struct{}
	done    chan struct{}
	dropped uatomic.Uint64
}

// NewAsyncWriter starts publishing for w. w stays owned by the caller
// and must outlive the AsyncWriter.
func NewAsyncWriter(w *Writer) *AsyncWriter {
	a := &AsyncWriter{
		w:      w,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	utils.GoWithRecover(a.run, func(r interface{}) {
		a.fail(errors.Errorf("channel %s async writer panic: %v", w.Name(), r))
		close(a.done)
	})
	return a
}

func (a *AsyncWriter) run() {
	var buf []byte
	for range a.signal {
		a.mu.Lock()
		if !a.has {
			a.mu.Unlock()
			continue
		}
		buf, a.pending = a.pending, buf[:0]
		a.has = false
		a.mu.Unlock()

		if err := a.w.Write(buf); err != nil {
			log.DefaultLogger.Errorf("[ripc] [writer] channel %s async write failed: %v", a.w.Name(), err)
			a.fail(err)
		}
	}
	close(a.done)
}

func (a *AsyncWriter) fail(err error) {
	a.mu.Lock()
	if a.err == nil {
		a.err = err
	}
	a.mu.Unlock()
}

// Write copies p as the next frame to publish and returns at once.
func (a *AsyncWriter) Write(p []byte) error {
	if len(p) > a.w.Size() {
		a.w.stats.WritesRejected.Inc(1)
		return errors.Wrapf(types.ErrPayloadTooLarge, "payload of %d bytes, capacity %d", len(p), a.w.Size())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return types.ErrClosed
	}
	if a.err != nil {
		return a.err
	}
	if a.has {
		a.dropped.Inc()
	}
	a.pending = append(a.pending[:0], p...)
	a.has = true
	select {
	case a.signal <- struct{}{}:
	default:
	}
	return nil
}

// Dropped returns the number of frames replaced before being published.
func (a *AsyncWriter) Dropped() uint64 {
	return a.dropped.Load()
}

// Close publishes the pending frame, if any, and stops the goroutine. The
// underlying Writer is left open.
func (a *AsyncWriter) Close() error {
	a.mu.Lock()
	if !a.stopped {
		a.stopped = true
		close(a.signal)
	}
	a.mu.Unlock()

	<-a.done
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
