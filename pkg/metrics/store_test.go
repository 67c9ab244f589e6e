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
	"testing"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsSameInstance(t *testing.T) {
	ResetAll()
	defer ResetAll()

	m1, err := NewMetrics("writer", map[string]string{"channel": "image"})
	require.NoError(t, err)
	m2, err := NewMetrics("writer", map[string]string{"channel": "image"})
	require.NoError(t, err)
	assert.True(t, m1 == m2)

	m1.Counter("frames").Inc(2)
	assert.Equal(t, int64(2), m2.Counter("frames").Count())
	assert.Len(t, GetAll(), 1)
	assert.True(t, GetMetricsFilter("writer.channel.image") == m1)
	assert.Equal(t, "writer.channel.image", FullName("writer", map[string]string{"channel": "image"}))

	RemoveMetrics("writer", map[string]string{"channel": "image"})
	assert.Len(t, GetAll(), 0)
}

func TestLabelCountExceeded(t *testing.T) {
	labels := map[string]string{}
	for i := 0; i <= MaxLabelCount; i++ {
		labels[string(rune('a'+i))] = "v"
	}
	_, err := NewMetrics("writer", labels)
	assert.Equal(t, ErrLabelCountExceeded, err)
}

func TestSortedLabels(t *testing.T) {
	ResetAll()
	defer ResetAll()

	m, _ := NewMetrics("reader", map[string]string{"zone": "z", "channel": "c"})
	keys, vals := m.SortedLabels()
	assert.Equal(t, []string{"channel", "zone"}, keys)
	assert.Equal(t, []string{"c", "z"}, vals)
}

func TestStatsMatcher(t *testing.T) {
	ResetAll()
	defer ResetAll()

	SetStatsMatcher(false, []string{"debug"}, []string{FramesSkipped})

	m, _ := NewMetrics("reader", map[string]string{"debug": "1"})
	_, ok := m.(*NilMetrics)
	assert.True(t, ok)

	r := NewReaderStats("image", true)
	assert.Equal(t, gometrics.NilCounter{}, r.FramesSkipped)
	r.FramesRead.Inc(1)
	assert.Equal(t, int64(1), r.FramesRead.Count())

	SetStatsMatcher(true, nil, nil)
	m, _ = NewMetrics("writer", map[string]string{"channel": "image"})
	_, ok = m.(*NilMetrics)
	assert.True(t, ok)
}

func TestDisabledStats(t *testing.T) {
	ResetAll()
	defer ResetAll()

	w := NewWriterStats("image", false)
	w.FramesWritten.Inc(1)
	assert.Equal(t, int64(0), w.FramesWritten.Count())
	assert.Len(t, GetAll(), 0)
}

func TestMatcherPatterns(t *testing.T) {
	m := newMetricsMatcher(false, []string{"channel=/debug*", " zone ", ""}, []string{"read_*", "frames_written"})

	testCases := []struct {
		labels   map[string]string
		excluded bool
	}{
		{map[string]string{"channel": "/debug-0"}, true},
		{map[string]string{"channel": "/image"}, false},
		{map[string]string{"zone": "any"}, true},
		{map[string]string{}, false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.excluded, m.isExclusionLabels(tc.labels), "%v", tc.labels)
	}

	assert.True(t, m.isExclusionKey(ReadRetries))
	assert.True(t, m.isExclusionKey(ReadTimeouts))
	assert.True(t, m.isExclusionKey(FramesWritten))
	assert.False(t, m.isExclusionKey(BytesWritten))
	assert.False(t, newMetricsMatcher(false, nil, nil).isExclusionKey(FramesRead))
	assert.True(t, newMetricsMatcher(true, nil, nil).isExclusionKey(FramesRead))
}

func TestNilMetrics(t *testing.T) {
	m, err := NewNilMetrics("reader", map[string]string{"channel": "/image", "zone": "a"})
	require.NoError(t, err)
	assert.Equal(t, "reader", m.Type())
	keys, vals := m.SortedLabels()
	assert.Equal(t, []string{"channel", "zone"}, keys)
	assert.Equal(t, []string{"/image", "a"}, vals)

	m.Counter(FramesRead).Inc(3)
	m.Gauge(LastReadGeneration).Update(7)
	m.Histogram(WaitDurationNs).Update(100)
	n := 0
	m.Each(func(string, interface{}) { n++ })
	assert.Equal(t, 0, n)
}
