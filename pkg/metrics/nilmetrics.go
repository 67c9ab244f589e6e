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

package metrics

import (
	gometrics "github.com/rcrowley/go-metrics"

	"mosn.io/ripc/pkg/types"
)

// NilMetrics keeps the type and labels of a disabled or excluded channel
// and hands out collectors that record nothing. It is never stored, so
// sinks do not see it.
type NilMetrics struct {
	typ       string
	labels    map[string]string
	labelKeys []string
	labelVals []string
}

func NewNilMetrics(typ string, labels map[string]string) (types.Metrics, error) {
	if len(labels) > MaxLabelCount {
		return nil, ErrLabelCountExceeded
	}
	keys, vals := sortedLabels(labels)
	return &NilMetrics{typ: typ, labels: labels, labelKeys: keys, labelVals: vals}, nil
}

func (m *NilMetrics) Type() string { return m.typ }

func (m *NilMetrics) Labels() map[string]string { return m.labels }

func (m *NilMetrics) SortedLabels() (keys, vals []string) { return m.labelKeys, m.labelVals }

func (m *NilMetrics) Counter(string) gometrics.Counter { return gometrics.NilCounter{} }

func (m *NilMetrics) Gauge(string) gometrics.Gauge { return gometrics.NilGauge{} }

func (m *NilMetrics) Histogram(string) gometrics.Histogram { return gometrics.NilHistogram{} }

func (m *NilMetrics) Each(func(string, interface{})) {}

func (m *NilMetrics) UnregisterAll() {}
