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

package queue

import (
	"context"
	"time"
)

const (
	defaultPollInterval = 10 * time.Millisecond
	maxWaitSlice        = 50 * time.Millisecond
	minBackoff          = 50 * time.Microsecond
)

type options struct {
	waitCtx       context.Context
	pollInterval  time.Duration
	timeout       time.Duration
	unlinkOnClose bool
	metrics       bool
}

func defaultOptions() *options {
	return &options{
		pollInterval: defaultPollInterval,
		metrics:      true,
	}
}

// Option configures a Queue handle.
type Option func(*options)

// WithUnlinkOnClose removes the segment when the handle that created it
// is closed.
func WithUnlinkOnClose() Option {
	return func(o *options) {
		o.unlinkOnClose = true
	}
}

// WithMetrics turns the go-metrics counters of the handle on or off.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metrics = enabled
	}
}

// WithWaitForSegment makes Open wait until the queue is created or ctx is
// done.
func WithWaitForSegment(ctx context.Context) Option {
	return func(o *options) {
		o.waitCtx = ctx
	}
}

// WithPoll sets the interval used while waiting for the segment and the
// longest sleep of waits on platforms without futex.
func WithPoll(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithTimeout bounds blocking reads and writes, which then fail with
// ErrTimeout. Zero means wait forever.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.timeout = d
		}
	}
}
