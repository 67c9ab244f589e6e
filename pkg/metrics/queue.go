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
	gometrics "github.com/rcrowley/go-metrics"

	"mosn.io/ripc/pkg/types"
)

// QueueType is the metrics type of queue handles.
const QueueType = types.RoleQueue

// queue metrics key
const (
	ElementsWritten = "elements_written"
	ElementsRead    = "elements_read"
	QueueBytesIn    = "bytes_in"
	QueueBytesOut   = "bytes_out"
	QueueFull       = "queue_full"
	QueueLength     = "queue_length"
	QueueWaitNs     = "wait_duration_ns"
)

// QueueStats are the counters a queue handle updates per element.
type QueueStats struct {
	*handle

	ElementsWritten gometrics.Counter
	ElementsRead    gometrics.Counter
	BytesIn         gometrics.Counter
	BytesOut        gometrics.Counter
	Full            gometrics.Counter
	Length          gometrics.Gauge
	WaitDuration    gometrics.Histogram
}

// NewQueueStats returns the stats of the named queue, disabled stats
// record nothing.
func NewQueueStats(name string, enabled bool) *QueueStats {
	m, h := channelMetrics(QueueType, name, enabled)
	return &QueueStats{
		handle:          h,
		ElementsWritten: m.Counter(ElementsWritten),
		ElementsRead:    m.Counter(ElementsRead),
		BytesIn:         m.Counter(QueueBytesIn),
		BytesOut:        m.Counter(QueueBytesOut),
		Full:            m.Counter(QueueFull),
		Length:          m.Gauge(QueueLength),
		WaitDuration:    m.Histogram(QueueWaitNs),
	}
}
