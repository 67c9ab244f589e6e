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

package prometheus

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gometrics "github.com/rcrowley/go-metrics"

	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/types"
)

var (
	json            = jsoniter.ConfigCompatibleWithStandardLibrary
	defaultEndpoint = "/metrics"
)

// PromConfig contains config for PromSink
type PromConfig struct {
	Port     int    `json:"port"`
	Endpoint string `json:"endpoint"`

	DisableCollectProcess bool `json:"disable_collect_process"`
	DisableCollectGo      bool `json:"disable_collect_go"`
	DisablePassiveFlush   bool `json:"disable_passive_flush"`
}

// PromSink extract metrics from stats registry into prometheus gauges
type PromSink struct {
	config *PromConfig

	mu        sync.Mutex
	registry  *prometheus.Registry
	gaugeVecs map[string]*prometheus.GaugeVec
}

type promHttpExporter struct {
	sink *PromSink
	real http.Handler
}

func (exporter *promHttpExporter) ServeHTTP(rsp http.ResponseWriter, req *http.Request) {
	// 1. flush metrics
	if !exporter.sink.config.DisablePassiveFlush {
		exporter.sink.Flush(metrics.GetAll())
	}

	// 2. export
	exporter.real.ServeHTTP(rsp, req)
}

// ~ MetricsSink
func (sink *PromSink) Flush(ms []types.Metrics) {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	for _, m := range ms {
		typ := m.Type()
		labelKeys, labelVals := m.SortedLabels()

		m.Each(func(name string, i interface{}) {
			switch metric := i.(type) {
			case gometrics.Counter:
				sink.gauge(typ, labelKeys, labelVals, name).Set(float64(metric.Count()))
			case gometrics.Gauge:
				sink.gauge(typ, labelKeys, labelVals, name).Set(float64(metric.Value()))
			case gometrics.Histogram:
				snap := metric.Snapshot()
				sink.gauge(typ, labelKeys, labelVals, name+"_max").Set(float64(snap.Max()))
				sink.gauge(typ, labelKeys, labelVals, name+"_min").Set(float64(snap.Min()))
				sink.gauge(typ, labelKeys, labelVals, name+"_mean").Set(snap.Mean())
			}
		})
	}
}

// Handler returns the http handler serving the prometheus exposition,
// flushing the metrics store first unless passive flush is disabled.
func (sink *PromSink) Handler() http.Handler {
	return &promHttpExporter{
		sink: sink,
		real: promhttp.HandlerFor(sink.registry, promhttp.HandlerOpts{}),
	}
}

// Mux returns a ServeMux serving Handler on the configured endpoint.
func (sink *PromSink) Mux() *http.ServeMux {
	srvMux := http.NewServeMux()
	srvMux.Handle(sink.config.Endpoint, sink.Handler())
	return srvMux
}

// Addr returns the listen address of the configured port.
func (sink *PromSink) Addr() string {
	return fmt.Sprintf(":%d", sink.config.Port)
}

// NewPromSink returns a metrics sink that produces Prometheus metrics using store data
func NewPromSink(config *PromConfig) *PromSink {
	promReg := prometheus.NewRegistry()
	// register process and  go metrics
	if !config.DisableCollectProcess {
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	if !config.DisableCollectGo {
		promReg.MustRegister(prometheus.NewGoCollector())
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}

	return &PromSink{
		config:    config,
		registry:  promReg,
		gaugeVecs: make(map[string]*prometheus.GaugeVec),
	}
}

func (sink *PromSink) gauge(typ string, labelKeys, labelVals []string, name string) prometheus.Gauge {
	namespace := strings.Join(labelKeys, "_")
	key := namespace + "_" + typ + "_" + name
	g, ok := sink.gaugeVecs[key]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: flattenKey(namespace),
			Subsystem: flattenKey(typ),
			Name:      flattenKey(name),
		}, labelKeys)

		sink.registry.MustRegister(g)
		sink.gaugeVecs[key] = g
	}
	return g.WithLabelValues(labelVals...)
}

// Builder creates a PromSink from a generic config map.
func Builder(cfg map[string]interface{}) (*PromSink, error) {
	promCfg := &PromConfig{}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing prometheus sink config %v", cfg)
	}
	if err := json.Unmarshal(data, promCfg); err != nil {
		return nil, errors.Wrapf(err, "parsing prometheus sink config %v", cfg)
	}

	if promCfg.Port == 0 {
		return nil, errors.New("prometheus sink's port is not specified")
	}

	if promCfg.Endpoint != "" && !strings.HasPrefix(promCfg.Endpoint, "/") {
		return nil, fmt.Errorf("invalid endpoint format:%s", promCfg.Endpoint)
	}

	return NewPromSink(promCfg), nil
}

func flattenKey(key string) string {
	key = strings.Replace(key, " ", "_", -1)
	key = strings.Replace(key, ".", "_", -1)
	key = strings.Replace(key, "-", "_", -1)
	key = strings.Replace(key, "=", "_", -1)
	return key
}
