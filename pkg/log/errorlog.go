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
	"path/filepath"

	"mosn.io/pkg/log"
)

// errorCode tags every error line written by ripc:
// {time} [{level}] [ripc] {content}
const errorCode = "ripc"

// errorLogger writes common messages to one logger and alerts to a
// sibling alert file. When the alert file is separate, alerts are mirrored
// to the main log as warnings.
type errorLogger struct {
	*log.SimpleErrorLog
	AlertLog *log.SimpleErrorLog
	mirror   bool
}

// alertOutput returns the alert file for output, or "" when alerts share
// the console logger.
func alertOutput(output string) string {
	switch output {
	case "", "stdout", "stderr", "/dev/stderr", "/dev/stdout":
		return ""
	}
	dir, file := filepath.Split(output)
	return filepath.Join(dir, "alert."+file)
}

// CreateDefaultErrorLogger creates an error logger writing to output.
func CreateDefaultErrorLogger(output string, level log.Level) (log.ErrorLogger, error) {
	lg, err := log.GetOrCreateLogger(output, nil)
	if err != nil {
		return nil, err
	}
	alg := lg
	if falert := alertOutput(output); falert != "" {
		if alg, err = log.GetOrCreateLogger(falert, nil); err != nil {
			return nil, err
		}
	}

	return &errorLogger{
		SimpleErrorLog: &log.SimpleErrorLog{
			Logger:    lg,
			Formatter: log.DefaultFormatter,
			Level:     level,
		},
		AlertLog: &log.SimpleErrorLog{
			Logger:    alg,
			Formatter: log.DefaultFormatter,
			Level:     log.ERROR,
		},
		mirror: alg != lg,
	}, nil
}

func (l *errorLogger) Errorf(format string, args ...interface{}) {
	if l.Disable() || l.Level < log.ERROR {
		return
	}
	l.Logger.Printf(l.Formatter(log.ErrorPre, errorCode, format), args...)
}

func (l *errorLogger) Alertf(alert string, format string, args ...interface{}) {
	if l.mirror && !l.Disable() && l.Level >= log.WARN {
		l.Logger.Printf(l.Formatter(log.WarnPre, alert, format), args...)
	}
	if l.AlertLog.Disable() {
		return
	}
	l.AlertLog.Alertf(alert, format, args...)
}
