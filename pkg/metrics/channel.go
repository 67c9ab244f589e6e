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

	gometrics "github.com/rcrowley/go-metrics"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/types"
)

// metrics type
const (
	WriterType = types.RoleWriter
	ReaderType = types.RoleReader

	ChannelLabel = "channel"
)

// writer metrics key
const (
	FramesWritten   = "frames_written"
	BytesWritten    = "bytes_written"
	WritesRejected  = "writes_rejected"
	WriteDurationNs = "write_duration_ns"
	LastGeneration  = "last_generation"
)

// reader metrics key
const (
	FramesRead         = "frames_read"
	BytesCopied        = "bytes_copied"
	FramesSkipped      = "frames_skipped"
	ReadRetries        = "read_retries"
	WaitDurationNs     = "wait_duration_ns"
	ReadTimeouts       = "read_timeouts"
	LastReadGeneration = "last_read_generation"
)

// WriterStats are the counters a channel writer updates on every write.
type WriterStats struct {
	*handle

	FramesWritten  gometrics.Counter
	BytesWritten   gometrics.Counter
	WritesRejected gometrics.Counter
	WriteDuration  gometrics.Histogram
	LastGeneration gometrics.Gauge
}

// ReaderStats are the counters a channel reader updates on every read.
type ReaderStats struct {
	*handle

	FramesRead     gometrics.Counter
	BytesCopied    gometrics.Counter
	FramesSkipped  gometrics.Counter
	ReadRetries    gometrics.Counter
	ReadTimeouts   gometrics.Counter
	WaitDuration   gometrics.Histogram
	LastGeneration gometrics.Gauge
}

// ChannelLabels returns the labels identifying a channel.
func ChannelLabels(name string) map[string]string {
	return map[string]string{ChannelLabel: name}
}

var (
	refMu sync.Mutex
	refs  = make(map[string]int)
)

// handle counts the open handles sharing one metrics set. The set leaves
// the store when the last of them is released.
type handle struct {
	typ    string
	labels map[string]string
	once   sync.Once
	owned  bool
}

// Release drops the reference of a closed handle, it is idempotent.
func (h *handle) Release() {
	if !h.owned {
		return
	}
	h.once.Do(func() {
		refMu.Lock()
		defer refMu.Unlock()
		name := FullName(h.typ, h.labels)
		if refs[name]--; refs[name] > 0 {
			return
		}
		delete(refs, name)
		RemoveMetrics(h.typ, h.labels)
	})
}

func channelMetrics(typ, name string, enabled bool) (types.Metrics, *handle) {
	labels := ChannelLabels(name)
	h := &handle{typ: typ, labels: labels}
	if !enabled {
		m, _ := NewNilMetrics(typ, labels)
		return m, h
	}
	m, err := NewMetrics(typ, labels)
	if err != nil {
		log.DefaultLogger.Errorf("[ripc] [metrics] create %s metrics for %s failed: %v", typ, name, err)
		m, _ = NewNilMetrics(typ, labels)
		return m, h
	}
	if _, ok := m.(*NilMetrics); ok {
		return m, h
	}
	refMu.Lock()
	refs[FullName(typ, labels)]++
	refMu.Unlock()
	h.owned = true
	return m, h
}

func resetRefs() {
	refMu.Lock()
	refs = make(map[string]int)
	refMu.Unlock()
}

// Refs returns the number of open handles using the (type, channel) set.
func Refs(typ, name string) int {
	refMu.Lock()
	defer refMu.Unlock()
	return refs[FullName(typ, ChannelLabels(name))]
}

// NewWriterStats returns the writer stats of the named channel, disabled
// stats record nothing.
func NewWriterStats(name string, enabled bool) *WriterStats {
	m, h := channelMetrics(WriterType, name, enabled)
	return &WriterStats{
		handle:         h,
		FramesWritten:  m.Counter(FramesWritten),
		BytesWritten:   m.Counter(BytesWritten),
		WritesRejected: m.Counter(WritesRejected),
		WriteDuration:  m.Histogram(WriteDurationNs),
		LastGeneration: m.Gauge(LastGeneration),
	}
}

// NewReaderStats returns the reader stats of the named channel.
func NewReaderStats(name string, enabled bool) *ReaderStats {
	m, h := channelMetrics(ReaderType, name, enabled)
	return &ReaderStats{
		handle:         h,
		FramesRead:     m.Counter(FramesRead),
		BytesCopied:    m.Counter(BytesCopied),
		FramesSkipped:  m.Counter(FramesSkipped),
		ReadRetries:    m.Counter(ReadRetries),
		ReadTimeouts:   m.Counter(ReadTimeouts),
		WaitDuration:   m.Histogram(WaitDurationNs),
		LastGeneration: m.Gauge(LastReadGeneration),
	}
}
