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

package console

import (
	"io"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	gometrics "github.com/rcrowley/go-metrics"

	"mosn.io/ripc/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// histogram output percents
var percents = []float64{0.5, 0.75, 0.95, 0.99, 0.999}

// NamespaceData represents a namespace's metrics data in string format
type NamespaceData map[string]string

type consoleSink struct {
	mu     sync.Mutex
	writer io.Writer
}

// ~ MetricsSink
func (sink *consoleSink) Flush(ms []types.Metrics) {
	// type -> namespace -> key -> value
	all := make(map[string]map[string]NamespaceData)

	for _, m := range ms {
		typeData, ok := all[m.Type()]
		if !ok {
			typeData = make(map[string]NamespaceData)
			all[m.Type()] = typeData
		}

		namespace := makeNamespace(m.SortedLabels())
		namespaceData, ok := typeData[namespace]
		if !ok {
			namespaceData = NamespaceData{}
			typeData[namespace] = namespaceData
		}

		m.Each(func(key string, i interface{}) {
			switch metric := i.(type) {
			case gometrics.Counter:
				namespaceData[key] = strconv.FormatInt(metric.Count(), 10)
			case gometrics.Gauge:
				namespaceData[key] = strconv.FormatInt(metric.Value(), 10)
			case gometrics.Histogram:
				h := metric.Snapshot()
				if h.Count() == 0 {
					return
				}
				ps := h.Percentiles(percents)
				for index := range percents {
					key := key + "." + strconv.FormatFloat(percents[index]*100, 'f', 2, 64) + "%"
					namespaceData[key] = strconv.FormatFloat(ps[index], 'f', 2, 64)
				}
				namespaceData[key+".min"] = strconv.FormatInt(h.Min(), 10)
				namespaceData[key+".max"] = strconv.FormatInt(h.Max(), 10)
			default: //unsupport metrics, ignore
				return
			}
		})
	}
	b, err := json.Marshal(all)
	if err != nil {
		return
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.writer.Write(append(b, '\n'))
}

// NewConsoleSink returns sink that writes one json document per flush.
func NewConsoleSink(writer io.Writer) types.MetricsSink {
	return &consoleSink{
		writer: writer,
	}
}

func makeNamespace(keys, vals []string) (namespace string) {
	pair := make([]string, 0, len(keys))

	for i := 0; i < len(vals); i++ {
		pair = append(pair, keys[i]+"."+vals[i])
	}
	return strings.Join(pair, ".")
}
