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

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"mosn.io/ripc/pkg/admin/store"
	"mosn.io/ripc/pkg/channel"
	"mosn.io/ripc/pkg/config"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

func testApp(t *testing.T) (run func(args ...string) error, stdout *bytes.Buffer) {
	origin := types.RipcShmPath
	types.RipcShmPath = t.TempDir()
	t.Setenv(types.EnvShmPath, "")
	conf = &config.RipcConfig{}
	t.Cleanup(func() {
		types.RipcShmPath = origin
		conf = &config.RipcConfig{}
		metrics.ResetAll()
	})

	stdout = &bytes.Buffer{}
	return func(args ...string) error {
		app := newApp()
		app.Writer = stdout
		app.ErrWriter = ioutil.Discard
		return app.Run(append([]string{"ripc"}, args...))
	}, stdout
}

func TestWriteInspectReadUnlink(t *testing.T) {
	run, stdout := testApp(t)

	require.NoError(t, run("write", "--name", "/cli", "--capacity", "1KB", "--frame-size", "100", "--count", "3", "--no-throttle"))

	require.NoError(t, run("inspect", "--name", "cli"))
	info := &channel.Info{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), info))
	assert.Equal(t, "cli", info.Name)
	assert.Equal(t, uint64(1024), info.Capacity)
	assert.Equal(t, uint64(3), info.Generation)
	assert.True(t, info.Closed)
	assert.Equal(t, uint32(0), info.WriterPID)
	assert.Equal(t, uint32(defaultRate), info.Rate)

	stdout.Reset()
	require.NoError(t, run("inspect", "--name", "cli", "--format", "yaml"))
	info = &channel.Info{}
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), info))
	assert.Equal(t, uint64(3), info.Generation)
	assert.Error(t, run("inspect", "--name", "cli", "--format", "xml"))

	out := filepath.Join(t.TempDir(), "frame.bin")
	require.NoError(t, run("read", "--name", "cli", "--count", "1", "--out", out))
	frame, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, frame, 100)
	// generation 3 carries the third generated frame
	assert.Equal(t, byte(2*85), frame[0])

	// the writer is gone, a blocking read ends cleanly
	require.NoError(t, run("read", "--name", "cli", "--block"))

	require.NoError(t, run("unlink", "--name", "/cli"))
	assert.False(t, shm.Exists("cli"))
	assert.True(t, errors.Is(run("unlink", "--name", "cli"), types.ErrNotFound))
}

func TestWriteFiles(t *testing.T) {
	run, _ := testApp(t)

	dir := t.TempDir()
	files := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	require.NoError(t, ioutil.WriteFile(files[0], []byte("frame-a"), 0644))
	require.NoError(t, ioutil.WriteFile(files[1], []byte("frame-b"), 0644))

	args := append([]string{"write", "--name", "files", "--capacity", "64B", "--count", "3", "--rate", "1000"}, files...)
	require.NoError(t, run(args...))

	out := filepath.Join(dir, "last")
	require.NoError(t, run("read", "--name", "files", "--count", "1", "--out", out))
	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "frame-a", string(data))

	big := filepath.Join(dir, "big")
	require.NoError(t, ioutil.WriteFile(big, make([]byte, 65), 0644))
	err = run("write", "--name", "files", "--capacity", "64B", "--count", "1", big)
	assert.True(t, errors.Is(err, types.ErrPayloadTooLarge))
}

func TestCommandErrors(t *testing.T) {
	run, _ := testApp(t)

	assert.True(t, errors.Is(run("write", "--capacity", "1KB"), types.ErrInvalidName))
	assert.True(t, errors.Is(run("write", "--name", "x", "--capacity", "huge"), types.ErrInvalidCapacity))
	assert.True(t, errors.Is(run("read", "--name", "absent", "--count", "1"), types.ErrNotFound))
	assert.True(t, errors.Is(run("inspect", "--name", "absent"), types.ErrNotFound))
	assert.Error(t, run("--config", "absent.json", "inspect", "--name", "x"))
}

func TestConfigFileChannel(t *testing.T) {
	run, stdout := testApp(t)

	path := filepath.Join(t.TempDir(), "ripc.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
channels:
  - name: /configured
    capacity: 2KB
    rate: 500
`), 0644))

	require.NoError(t, run("--config", path, "write", "--name", "configured", "--count", "2", "--frame-size", "10"))
	require.NoError(t, run("inspect", "--name", "configured"))

	info := &channel.Info{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), info))
	assert.Equal(t, uint64(2048), info.Capacity)
	assert.Equal(t, uint32(500), info.Rate)
	assert.Equal(t, uint64(2), info.Generation)
}

func TestStartMetricsServesPrometheus(t *testing.T) {
	testApp(t)
	conf.Metrics.SinkConfigs = []config.SinkConfig{{
		Type: config.PrometheusSink,
		Config: map[string]interface{}{
			"port":                    0,
			"disable_collect_process": true,
			"disable_collect_go":      true,
		},
	}}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Duration("stats-interval", 0, "")
	stop, err := startMetrics(cli.NewContext(newApp(), set, nil))
	require.NoError(t, err)

	w, err := channel.NewWriter("exported", 64)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Write([]byte("abc")))

	addr, ok := store.ServiceAddr("prometheus :0")
	require.True(t, ok)
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", addr.(*net.TCPAddr).Port))
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `channel_writer_frames_written{channel="exported"} 1`)

	stop()
	_, ok = store.ServiceAddr("prometheus :0")
	assert.False(t, ok)
}

func TestWriteAsync(t *testing.T) {
	run, stdout := testApp(t)

	require.NoError(t, run("write", "--name", "async", "--capacity", "1KB", "--frame-size", "10", "--count", "50", "--async", "--no-throttle"))
	require.NoError(t, run("inspect", "--name", "async"))

	info := &channel.Info{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), info))
	assert.True(t, info.Generation >= 1 && info.Generation <= 50, "generation %d", info.Generation)
}

func TestQueuePushPopShutdown(t *testing.T) {
	run, stdout := testApp(t)

	dir := t.TempDir()
	var files []string
	for _, s := range []string{"first", "second", "third"} {
		f := filepath.Join(dir, s)
		require.NoError(t, ioutil.WriteFile(f, []byte(s), 0644))
		files = append(files, f)
	}

	args := append([]string{"queue", "push", "--name", "jobs", "--element-size", "16B", "--capacity", "4"}, files...)
	require.NoError(t, run(args...))

	out := filepath.Join(dir, "out")
	require.NoError(t, run("queue", "pop", "--name", "jobs", "--count", "1", "--out", out))
	data, err := ioutil.ReadFile(filepath.Join(out, "000000"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	stdout.Reset()
	require.NoError(t, run("queue", "pop", "--name", "jobs"))
	assert.Equal(t, "0\t6 bytes\n1\t5 bytes\n", stdout.String())

	// full queue with a deadline
	big := filepath.Join(dir, "big")
	require.NoError(t, ioutil.WriteFile(big, make([]byte, 17), 0644))
	assert.True(t, errors.Is(run("queue", "push", "--name", "jobs", "--element-size", "16B", "--capacity", "4", big), types.ErrPayloadTooLarge))
	assert.True(t, errors.Is(run("queue", "push", "--name", "jobs", "--element-size", "32B", "--capacity", "4", files[0]), types.ErrSizeMismatch))
	assert.True(t, errors.Is(run("queue", "push", "--name", "jobs", "--element-size", "16B", "--capacity", "4", "--timeout", "20ms",
		files[0], files[0], files[0], files[0], files[0]), types.ErrTimeout))

	require.NoError(t, run("queue", "shutdown", "--name", "jobs"))
	assert.True(t, errors.Is(run("queue", "pop", "--name", "jobs"), types.ErrClosed))
	assert.True(t, errors.Is(run("queue", "pop", "--name", "absent"), types.ErrNotFound))
}
