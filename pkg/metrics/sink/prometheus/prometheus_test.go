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

package prometheus

import (
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/ripc/pkg/metrics"
)

func TestBuilder(t *testing.T) {
	_, err := Builder(map[string]interface{}{})
	assert.Error(t, err)

	_, err = Builder(map[string]interface{}{"port": 9100, "endpoint": "metrics"})
	assert.Error(t, err)

	sink, err := Builder(map[string]interface{}{"port": 9100})
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, sink.config.Endpoint)
	assert.Equal(t, ":9100", sink.Addr())
}

func TestPrometheusMetrics(t *testing.T) {
	metrics.ResetAll()
	defer metrics.ResetAll()

	w := metrics.NewWriterStats("/image-0", true)
	w.FramesWritten.Inc(2)
	w.WriteDuration.Update(10)
	w.WriteDuration.Update(30)
	r := metrics.NewReaderStats("/image-0", true)
	r.FramesRead.Inc(5)

	sink := NewPromSink(&PromConfig{
		Port:                  9100,
		DisableCollectGo:      true,
		DisableCollectProcess: true,
	})

	srv := httptest.NewServer(sink.Mux())
	defer srv.Close()

	// scrape twice, the second scrape reuses the registered vectors
	for i := 0; i < 2; i++ {
		resp, err := srv.Client().Get(srv.URL + defaultEndpoint)
		require.NoError(t, err)
		body, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		text := string(body)
		assert.Contains(t, text, `channel_writer_frames_written{channel="/image-0"} 2`)
		assert.Contains(t, text, `channel_writer_write_duration_ns_max{channel="/image-0"} 30`)
		assert.Contains(t, text, `channel_writer_write_duration_ns_min{channel="/image-0"} 10`)
		assert.Contains(t, text, `channel_reader_frames_read{channel="/image-0"} 5`)
	}
}

func TestFlattenKey(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e", flattenKey("a.b-c=d e"))
}
