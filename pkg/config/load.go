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
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"mosn.io/ripc/pkg/channel"
	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Load reads a json or yaml (.yaml, .yml) config file.
func Load(path string) (*RipcConfig, error) {
	log.StartLogger.Infof("[ripc] [config] load config from %s", path)
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	cfg, err := Parse(content, yamlFormat(path))
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Parse decodes config content, translating yaml to json first.
func Parse(content []byte, isYaml bool) (*RipcConfig, error) {
	if isYaml {
		bytes, err := yaml.YAMLToJSON(content)
		if err != nil {
			return nil, errors.Wrap(err, "translate yaml to json")
		}
		content = bytes
	}
	cfg := &RipcConfig{}
	if err := json.Unmarshal(content, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func yamlFormat(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks the channel entries.
func (c *RipcConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]
		if ch.Name == "" {
			return errors.Wrapf(types.ErrInvalidName, "channel #%d has no name", i)
		}
		if ch.Capacity.Bytes() == 0 {
			return errors.Wrapf(types.ErrInvalidCapacity, "channel %s", ch.Name)
		}
		if ch.Throttle && ch.Rate <= 0 {
			return errors.Errorf("channel %s throttles without a rate", ch.Name)
		}
		if _, ok := seen[ch.Name]; ok {
			return errors.Errorf("channel %s is configured twice", ch.Name)
		}
		seen[ch.Name] = struct{}{}
	}
	return nil
}

// Apply sets up the process wide state described by the config: the
// default logger, the segment directory and the stats matcher.
func (c *RipcConfig) Apply() error {
	if c.Log.Level != "" || c.Log.Path != "" {
		if err := InitLogger(c.Log.Path, c.Log.Level); err != nil {
			return err
		}
	}
	if c.ShmDir != "" && os.Getenv(types.EnvShmPath) == "" {
		if err := types.InitShmPath(c.ShmDir); err != nil {
			return errors.Wrapf(err, "init shm dir %s", c.ShmDir)
		}
	}
	m := c.Metrics.StatsMatcher
	if m.RejectAll || len(m.ExclusionLabels) > 0 || len(m.ExclusionKeys) > 0 {
		metrics.SetStatsMatcher(m.RejectAll, m.ExclusionLabels, m.ExclusionKeys)
	}
	return nil
}

// InitLogger initializes the default logger, level "off" disables it.
func InitLogger(path, level string) error {
	if level == "off" {
		log.Disable()
		return nil
	}
	lv := log.INFO
	if level != "" {
		var ok bool
		if lv, ok = log.ParseLogLevel(level); !ok {
			return errors.Errorf("unknown log level: %s", level)
		}
	}
	return log.InitDefaultLogger(path, lv)
}

// WriterOptions translates the channel config into writer options.
func (c *ChannelConfig) WriterOptions() []channel.Option {
	opts := []channel.Option{
		channel.WithRate(c.Rate),
		channel.WithMetrics(!c.DisableMetrics),
	}
	if c.Throttle {
		opts = append(opts, channel.WithThrottle())
	}
	if c.UnlinkOnClose {
		opts = append(opts, channel.WithUnlinkOnClose())
	}
	return opts
}

// ReaderOptions translates the channel config into reader options. The
// returned cancel releases the segment wait context.
func (c *ChannelConfig) ReaderOptions() ([]channel.Option, context.CancelFunc) {
	opts := []channel.Option{
		channel.WithMetrics(!c.DisableMetrics),
		channel.WithTimeout(c.Timeout.Duration),
		channel.WithPoll(c.PollInterval.Duration),
	}
	cancel := context.CancelFunc(func() {})
	if c.WaitForSegment.Duration > 0 {
		var ctx context.Context
		ctx, cancel = context.WithTimeout(context.Background(), c.WaitForSegment.Duration)
		opts = append(opts, channel.WithWaitForSegment(ctx))
	}
	return opts, cancel
}
