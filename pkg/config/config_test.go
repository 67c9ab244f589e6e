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

package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/types"
)

func TestLoadJSON(t *testing.T) {
	cfg, err := Load("testdata/ripc.json")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Channels, 1)
	ch, ok := cfg.Channel("image")
	require.True(t, ok)
	assert.Equal(t, uint64(100*1024*1024), ch.Capacity.Bytes())
	assert.Equal(t, 30, ch.Rate)
	assert.Equal(t, 2*time.Second, ch.Timeout.Duration)
	assert.Equal(t, 5*time.Millisecond, ch.PollInterval.Duration)
	assert.Equal(t, 10*time.Second, ch.WaitForSegment.Duration)

	assert.Equal(t, time.Second, cfg.Metrics.FlushInterval.Duration)
	assert.Equal(t, []string{"read_retries"}, cfg.Metrics.StatsMatcher.ExclusionKeys)

	sinks, proms, err := cfg.Metrics.Sinks()
	require.NoError(t, err)
	assert.Len(t, sinks, 1)
	require.Len(t, proms, 1)
	assert.Equal(t, ":9100", proms[0].Addr())

	opts, cancel := ch.ReaderOptions()
	defer cancel()
	assert.Len(t, opts, 4)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load("testdata/ripc.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ripc-test", cfg.ShmDir)
	require.Len(t, cfg.Channels, 2)

	depth, ok := cfg.Channel("/depth")
	require.True(t, ok)
	assert.Equal(t, uint64(8*1024*1024), depth.Capacity.Bytes())
	assert.True(t, depth.Throttle)
	assert.True(t, depth.UnlinkOnClose)
	assert.Len(t, depth.WriterOptions(), 4)

	thumbs, ok := cfg.Channel("thumbs")
	require.True(t, ok)
	assert.Equal(t, uint64(512*1024), thumbs.Capacity.Bytes())
	assert.True(t, thumbs.DisableMetrics)
	assert.Len(t, thumbs.WriterOptions(), 2)

	_, ok = cfg.Channel("absent")
	assert.False(t, ok)

	sinks, proms, err := cfg.Metrics.Sinks()
	require.NoError(t, err)
	assert.Len(t, sinks, 1)
	assert.Len(t, proms, 0)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/absent.json")
	assert.Error(t, err)

	for _, c := range []struct {
		content string
		target  error
	}{
		{`{"channels":[{"capacity":"1MB"}]}`, types.ErrInvalidName},
		{`{"channels":[{"name":"a"}]}`, types.ErrInvalidCapacity},
		{`{"channels":[{"name":"a","capacity":"1MB","throttle":true}]}`, nil},
		{`{"channels":[{"name":"a","capacity":"1MB"},{"name":"a","capacity":"2MB"}]}`, nil},
		{`{"channels":[{"name":"a","capacity":"1MB","timeout":"soon"}]}`, nil},
	} {
		_, err := Parse([]byte(c.content), false)
		require.Error(t, err, c.content)
		if c.target != nil {
			assert.True(t, errors.Is(err, c.target), c.content)
		}
	}

	_, err = Parse([]byte("channels: [\n"), true)
	assert.Error(t, err)

	cfg := &MetricsConfig{SinkConfigs: []SinkConfig{{Type: "statsd"}}}
	_, _, err = cfg.Sinks()
	assert.Error(t, err)
}

func TestDurationConfig(t *testing.T) {
	d := DurationConfig{1500 * time.Millisecond}
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))
}

func TestApply(t *testing.T) {
	originPath := types.RipcShmPath
	originLogger := log.DefaultLogger
	defer func() {
		types.RipcShmPath = originPath
		log.DefaultLogger = originLogger
		log.StartLogger = originLogger
		metrics.ResetAll()
	}()
	t.Setenv(types.EnvShmPath, "")

	dir := filepath.Join(t.TempDir(), "shm")
	cfg := &RipcConfig{
		Log:    LogConfig{Level: "warn", Path: filepath.Join(t.TempDir(), "ripc.log")},
		ShmDir: dir,
		Metrics: MetricsConfig{
			StatsMatcher: StatsMatcher{ExclusionKeys: []string{metrics.ReadRetries}},
		},
	}
	require.NoError(t, cfg.Apply())
	assert.Equal(t, dir, types.RipcShmPath)
	assert.Equal(t, log.WARN, log.DefaultLogger.GetLogLevel())

	r := metrics.NewReaderStats("apply", true)
	r.ReadRetries.Inc(1)
	assert.Equal(t, int64(0), r.ReadRetries.Count())

	assert.Error(t, (&RipcConfig{Log: LogConfig{Level: "loud"}}).Apply())
}
