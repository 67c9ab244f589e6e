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

//go:generate mockgen -source=metrics.go -destination=../mock/metrics.go -package=mock

package types

import (
	"github.com/rcrowley/go-metrics"
)

// Metrics is a set of go-metrics collectors owned by one channel handle.
// A (type, labels) pair identifies the set, e.g. type "writer" with
// label channel=/image.
type Metrics interface {
	// Type is the handle role the set belongs to.
	Type() string

	Labels() map[string]string

	// SortedLabels returns label keys and their values ordered by key.
	SortedLabels() (keys, vals []string)

	// Counter, Gauge and Histogram get or create a collector by key.
	// Using one key for two collector kinds panics.
	Counter(key string) metrics.Counter
	Gauge(key string) metrics.Gauge
	Histogram(key string) metrics.Histogram

	// Each visits every registered collector.
	Each(func(string, interface{}))

	// UnregisterAll drops every collector of the set.
	UnregisterAll()
}

// MetricsSink exports a snapshot of metrics sets, called by the flusher.
type MetricsSink interface {
	Flush(metrics []Metrics)
}
