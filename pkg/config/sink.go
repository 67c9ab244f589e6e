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

package config

import (
	"os"

	"github.com/pkg/errors"

	"mosn.io/ripc/pkg/metrics/sink/console"
	"mosn.io/ripc/pkg/metrics/sink/prometheus"
	"mosn.io/ripc/pkg/types"
)

// sink types
const (
	ConsoleSink    = "console"
	PrometheusSink = "prometheus"
)

// Sinks builds the configured metrics sinks. Prometheus sinks are also
// returned separately since they need an http server.
func (c *MetricsConfig) Sinks() ([]types.MetricsSink, []*prometheus.PromSink, error) {
	var (
		sinks []types.MetricsSink
		proms []*prometheus.PromSink
	)
	for _, sc := range c.SinkConfigs {
		switch sc.Type {
		case ConsoleSink:
			sinks = append(sinks, console.NewConsoleSink(os.Stdout))
		case PrometheusSink:
			p, err := prometheus.Builder(sc.Config)
			if err != nil {
				return nil, nil, err
			}
			sinks = append(sinks, p)
			proms = append(proms, p)
		default:
			return nil, nil, errors.Errorf("unknown metrics sink type: %s", sc.Type)
		}
	}
	return sinks, proms, nil
}
