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
	"mosn.io/ripc/pkg/channel"
	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/types"
)

const headerType = "header"

// headerSampler mirrors the shared header of a channel into gauges.
type headerSampler struct {
	name string
	m    types.Metrics
}

func newHeaderSampler(name string) *headerSampler {
	m, err := metrics.NewMetrics(headerType, metrics.ChannelLabels(name))
	if err != nil {
		m, _ = metrics.NewNilMetrics(headerType, metrics.ChannelLabels(name))
	}
	return &headerSampler{name: name, m: m}
}

func (s *headerSampler) sample() {
	info, err := channel.Inspect(s.name)
	if err != nil {
		log.DefaultLogger.Warnf("[ripc] [metrics] inspect channel %s failed: %v", s.name, err)
		return
	}
	s.m.Gauge("generation").Update(int64(info.Generation))
	s.m.Gauge("capacity").Update(int64(info.Capacity))
	s.m.Gauge("readers").Update(int64(info.Readers))
	s.m.Gauge("waiters").Update(int64(info.Waiters))
	s.m.Gauge("rate").Update(int64(info.Rate))
	s.m.Gauge("closed").Update(boolGauge(info.Closed))
	s.m.Gauge("writer_alive").Update(boolGauge(info.WriterAlive))
}

func boolGauge(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
