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

import "strings"

// metricsMatcher decides which metrics are dropped before registration.
// A pattern ending in "*" matches by prefix. A label pattern of the form
// "key=value" matches only that label value, a bare "key" any value.
type metricsMatcher struct {
	rejectAll       bool
	exclusionLabels []string
	exclusionKeys   []string
}

func newMetricsMatcher(all bool, labels, keys []string) *metricsMatcher {
	m := &metricsMatcher{rejectAll: all}
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			m.exclusionLabels = append(m.exclusionLabels, l)
		}
	}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			m.exclusionKeys = append(m.exclusionKeys, k)
		}
	}
	return m
}

func (m *metricsMatcher) isExclusionLabels(labels map[string]string) bool {
	if m.rejectAll {
		return true
	}
	for _, pattern := range m.exclusionLabels {
		key, value, hasValue := strings.Cut(pattern, "=")
		for k, v := range labels {
			if !match(key, k) {
				continue
			}
			if !hasValue || match(value, v) {
				return true
			}
		}
	}
	return false
}

func (m *metricsMatcher) isExclusionKey(key string) bool {
	if m.rejectAll {
		return true
	}
	for _, pattern := range m.exclusionKeys {
		if match(pattern, key) {
			return true
		}
	}
	return false
}

func match(pattern, s string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(s, pattern[:len(pattern)-1])
	}
	return pattern == s
}
