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

package log

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mosn.io/pkg/log"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		flag     string
		expected log.Level
		ok       bool
	}{
		{"trace", log.TRACE, true},
		{"debug", log.DEBUG, true},
		{"INFO", log.INFO, true},
		{" warning ", log.WARN, true},
		{"warn", log.WARN, true},
		{"error", log.ERROR, true},
		{"critical", log.FATAL, true},
		{"off", 0, false},
		{"verbose", 0, false},
	}
	for _, tc := range testCases {
		lv, ok := ParseLogLevel(tc.flag)
		assert.Equal(t, tc.ok, ok, tc.flag)
		if tc.ok {
			assert.Equal(t, tc.expected, lv, tc.flag)
		}
	}
}

func TestInitDefaultLogger(t *testing.T) {
	origin, originStart := DefaultLogger, StartLogger
	defer func() {
		DefaultLogger, StartLogger = origin, originStart
	}()

	output := filepath.Join(t.TempDir(), "ripc.log")
	require.NoError(t, InitDefaultLogger(output, log.INFO))
	assert.Equal(t, log.INFO, DefaultLogger.GetLogLevel())

	DefaultLogger.Infof("[ripc] [test] info message %d", 1)
	DefaultLogger.Debugf("[ripc] [test] debug message filtered")

	require.Eventually(t, func() bool {
		b, err := ioutil.ReadFile(output)
		return err == nil && strings.Contains(string(b), "info message 1")
	}, 3*time.Second, 50*time.Millisecond)

	b, err := ioutil.ReadFile(output)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "debug message filtered")
}

func TestCreateDefaultErrorLoggerConsole(t *testing.T) {
	for _, output := range []string{"", "stdout", "stderr"} {
		lg, err := CreateDefaultErrorLogger(output, log.WARN)
		require.NoError(t, err)
		el, ok := lg.(*errorLogger)
		require.True(t, ok)
		// console outputs share one logger for alerts
		assert.Equal(t, el.SimpleErrorLog.Logger, el.AlertLog.Logger)
	}
}

func TestAlertOutput(t *testing.T) {
	assert.Equal(t, "", alertOutput("stderr"))
	assert.Equal(t, "", alertOutput(""))
	assert.Equal(t, filepath.Join("/var/log/ripc", "alert.ripc.log"), alertOutput("/var/log/ripc/ripc.log"))
}

func TestAlertMirroredToMainLog(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "ripc.log")
	lg, err := CreateDefaultErrorLogger(output, log.INFO)
	require.NoError(t, err)

	lg.Alertf(AlertWriterToken, "[ripc] [test] took over token of pid %d", 42)
	lg.Errorf("[ripc] [test] plain error")

	require.Eventually(t, func() bool {
		main, err1 := ioutil.ReadFile(output)
		alert, err2 := ioutil.ReadFile(alertOutput(output))
		return err1 == nil && err2 == nil &&
			strings.Contains(string(main), "token of pid 42") &&
			strings.Contains(string(main), "plain error") &&
			strings.Contains(string(alert), AlertWriterToken)
	}, 3*time.Second, 50*time.Millisecond)
}
