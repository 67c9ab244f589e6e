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

package metrics

import (
	"sync"
	"time"

	"go.uber.org/atomic"
	"mosn.io/pkg/utils"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/types"
)

// Flusher periodically flushes all metrics in the store to its sinks.
type Flusher struct {
	interval time.Duration
	sinks    []types.MetricsSink

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewFlusher creates a flusher, Start must be called to run it.
func NewFlusher(interval time.Duration, sinks ...types.MetricsSink) *Flusher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Flusher{
		interval: interval,
		sinks:    sinks,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the flush loop in a background goroutine.
func (f *Flusher) Start() {
	if !f.started.CAS(false, true) {
		return
	}
	utils.GoWithRecover(func() {
		defer close(f.done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stop:
				f.Flush()
				return
			case <-ticker.C:
				f.Flush()
			}
		}
	}, func(r interface{}) {
		log.DefaultLogger.Errorf("[ripc] [metrics] flusher panic: %v", r)
	})
}

// Flush pushes the current store to every sink once.
func (f *Flusher) Flush() {
	all := GetAll()
	for _, sink := range f.sinks {
		sink.Flush(all)
	}
}

// Stop flushes a last time and waits for the loop to exit.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
		if f.started.Load() {
			<-f.done
		}
	})
}
