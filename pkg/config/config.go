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
	"fmt"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
)

// RipcConfig is the configuration of the ripc command line tools.
type RipcConfig struct {
	Log      LogConfig       `json:"log,omitempty"`
	ShmDir   string          `json:"shm_dir,omitempty"` // overridden by RIPC_SHM_DIR
	Channels []ChannelConfig `json:"channels,omitempty"`
	Metrics  MetricsConfig   `json:"metrics,omitempty"`
}

// LogConfig for the default logger
type LogConfig struct {
	Path  string `json:"path,omitempty"`  // empty means stderr
	Level string `json:"level,omitempty"` // trace, debug, info, warn, error, fatal or off
}

// ChannelConfig describes one named channel.
type ChannelConfig struct {
	Name           string            `json:"name"`
	Capacity       datasize.ByteSize `json:"capacity"`
	Rate           int               `json:"rate,omitempty"`
	Throttle       bool              `json:"throttle,omitempty"`
	UnlinkOnClose  bool              `json:"unlink_on_close,omitempty"`
	DisableMetrics bool              `json:"disable_metrics,omitempty"`
	Timeout        DurationConfig    `json:"timeout,omitempty"`
	PollInterval   DurationConfig    `json:"poll_interval,omitempty"`
	WaitForSegment DurationConfig    `json:"wait_for_segment,omitempty"`
}

// MetricsConfig for metrics sinks
type MetricsConfig struct {
	SinkConfigs   []SinkConfig   `json:"sinks,omitempty"`
	StatsMatcher  StatsMatcher   `json:"stats_matcher,omitempty"`
	FlushInterval DurationConfig `json:"flush_interval,omitempty"`
}

// SinkConfig selects a metrics sink by type, e.g. "prometheus" or "console".
type SinkConfig struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// StatsMatcher is a configuration for disabling stat instantiation.
type StatsMatcher struct {
	RejectAll       bool     `json:"reject_all,omitempty"`
	ExclusionLabels []string `json:"exclusion_labels,omitempty"`
	ExclusionKeys   []string `json:"exclusion_keys,omitempty"`
}

// DurationConfig ia a wrapper for time.Duration, so time config can be written in '300ms' or '1h' format
type DurationConfig struct {
	time.Duration
}

// UnmarshalJSON get DurationConfig.Duration from json file
func (d *DurationConfig) UnmarshalJSON(b []byte) (err error) {
	d.Duration, err = time.ParseDuration(strings.Trim(string(b), `"`))
	return
}

// MarshalJSON
func (d DurationConfig) MarshalJSON() (b []byte, err error) {
	return []byte(fmt.Sprintf(`"%s"`, d.String())), nil
}

// Channel returns the config of the named channel, "/image" and "image"
// are the same name.
func (c *RipcConfig) Channel(name string) (*ChannelConfig, bool) {
	want := strings.TrimPrefix(name, "/")
	for i := range c.Channels {
		if strings.TrimPrefix(c.Channels[i].Name, "/") == want {
			return &c.Channels[i], true
		}
	}
	return nil, false
}
