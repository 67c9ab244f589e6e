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

package queue

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	uatomic "go.uber.org/atomic"
	"mosn.io/pkg/utils"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/types"
)

const defaultBacklog = 64

// Producer writes elements into a Queue from a background goroutine, so
// Write returns without waiting for room in the shared queue. Elements
// keep their order.
type Producer struct {
	q       *Queue
	pending chan []byte
	done    chan struct{}

	mu      sync.RWMutex
	stopped bool
	once    sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	queued  uatomic.Uint64
	written uatomic.Uint64
	err     uatomic.Error
}

// NewProducer starts a producer over q holding up to backlog elements in
// process before Write blocks. backlog <= 0 picks a default.
func NewProducer(q *Queue, backlog int) *Producer {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Producer{
		q:       q,
		pending: make(chan []byte, backlog),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	utils.GoWithRecover(p.run, func(r interface{}) {
		p.err.Store(errors.Errorf("queue %s producer panic: %v", q.Name(), r))
		// drain so Write and Close never block on a dead loop
		for range p.pending {
		}
		close(p.done)
	})
	return p
}

func (p *Producer) run() {
	for b := range p.pending {
		if p.err.Load() != nil {
			continue
		}
		if err := p.q.WriteContext(p.ctx, b); err != nil {
			log.DefaultLogger.Errorf("[ripc] [queue] queue %s producer stopped after %d elements: %v", p.q.Name(), p.written.Load(), err)
			p.err.Store(err)
			continue
		}
		p.written.Inc()
	}
	close(p.done)
}

// Write copies b and hands it to the background writer. It fails on an
// oversized element, after Close, or once a background write has failed.
func (p *Producer) Write(b []byte) error {
	if err := p.q.checkPayload(b); err != nil {
		return err
	}
	if err := p.err.Load(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return types.ErrClosed
	}
	p.pending <- append([]byte(nil), b...)
	p.queued.Inc()
	return nil
}

// Queued returns the number of elements accepted by Write.
func (p *Producer) Queued() uint64 {
	return p.queued.Load()
}

// Written returns the number of elements stored in the shared queue.
func (p *Producer) Written() uint64 {
	return p.written.Load()
}

// Err returns the error that stopped the background writer, if any.
func (p *Producer) Err() error {
	return p.err.Load()
}

// Close stops accepting elements and waits until the pending ones are
// written or ctx is done, in which case the rest are dropped. The queue
// itself stays open.
func (p *Producer) Close(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.pending)
		p.mu.Unlock()
	})

	select {
	case <-p.done:
	case <-ctx.Done():
		p.cancel()
		<-p.done
	}
	p.cancel()
	return p.err.Load()
}
