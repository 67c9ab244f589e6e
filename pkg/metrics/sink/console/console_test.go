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

package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/ripc/pkg/metrics"
)

func TestMakeNamespace(t *testing.T) {
	metrics.ResetAll()
	testCases := []struct {
		labels   map[string]string
		expected string
	}{
		{map[string]string{"channel": "image"}, "channel.image"},
		{map[string]string{"channel": "image", "host": "cam0"}, "channel.image.host.cam0"},
	}
	for i := range testCases {
		tc := testCases[i]
		m, _ := metrics.NewMetrics("test", tc.labels)
		assert.Equal(t, tc.expected, makeNamespace(m.SortedLabels()))
	}
}

func TestConsoleMetrics(t *testing.T) {
	metrics.ResetAll()
	defer metrics.ResetAll()

	w := metrics.NewWriterStats("image", true)
	w.FramesWritten.Inc(3)
	w.BytesWritten.Inc(300)
	w.LastGeneration.Update(3)
	for _, d := range []int64{1, 2, 3, 4} {
		w.WriteDuration.Update(d)
	}
	r := metrics.NewReaderStats("image", true)
	r.FramesSkipped.Inc(1)

	buf := &bytes.Buffer{}
	NewConsoleSink(buf).Flush(metrics.GetAll())

	all := map[string]map[string]NamespaceData{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &all))

	writer := all[metrics.WriterType]["channel.image"]
	assert.Equal(t, "3", writer[metrics.FramesWritten])
	assert.Equal(t, "300", writer[metrics.BytesWritten])
	assert.Equal(t, "0", writer[metrics.WritesRejected])
	assert.Equal(t, "3", writer[metrics.LastGeneration])
	assert.Equal(t, "1", writer[metrics.WriteDurationNs+".min"])
	assert.Equal(t, "4", writer[metrics.WriteDurationNs+".max"])

	reader := all[metrics.ReaderType]["channel.image"]
	assert.Equal(t, "1", reader[metrics.FramesSkipped])
	// empty histograms are left out
	_, ok := reader[metrics.WaitDurationNs+".min"]
	assert.False(t, ok)
}
