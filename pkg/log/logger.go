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
	"strings"

	"mosn.io/pkg/log"
)

// Level aliases, so callers only import this package.
type Level = log.Level

const (
	FATAL = log.FATAL
	ERROR = log.ERROR
	WARN  = log.WARN
	INFO  = log.INFO
	DEBUG = log.DEBUG
	TRACE = log.TRACE
)

// Alert codes passed to Alertf.
const (
	AlertShmLeak     = "ripc.shm.leak"
	AlertShmUnmap    = "ripc.shm.unmap"
	AlertWriterToken = "ripc.writer.token"
	AlertQueueLock   = "ripc.queue.lock"
)

var (
	// DefaultLogger is used by the library at runtime.
	DefaultLogger log.ErrorLogger
	// StartLogger is used while handles are being set up and torn down.
	StartLogger log.ErrorLogger
)

var levels = map[string]log.Level{
	"trace":    log.TRACE,
	"debug":    log.DEBUG,
	"info":     log.INFO,
	"warn":     log.WARN,
	"warning":  log.WARN,
	"error":    log.ERROR,
	"critical": log.FATAL,
	"fatal":    log.FATAL,
}

func init() {
	lg, err := CreateDefaultErrorLogger("", log.INFO)
	if err != nil {
		panic("init ripc logger error: " + err.Error())
	}
	DefaultLogger = lg
	StartLogger = lg
}

// InitDefaultLogger replaces DefaultLogger and StartLogger with a logger
// writing to output at the given level.
func InitDefaultLogger(output string, level log.Level) error {
	lg, err := CreateDefaultErrorLogger(output, level)
	if err != nil {
		return err
	}
	DefaultLogger = lg
	StartLogger = lg
	return nil
}

// ParseLogLevel maps a command line level name to a log.Level.
// "off" is not a level; callers handle it with Disable.
func ParseLogLevel(level string) (log.Level, bool) {
	lv, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	return lv, ok
}

// Disable turns the default loggers off.
func Disable() {
	for _, lg := range []log.ErrorLogger{DefaultLogger, StartLogger} {
		if t, ok := lg.(interface{ Toggle(bool) }); ok {
			t.Toggle(true)
		}
	}
}
