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
	"context"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ghodss/yaml"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"mosn.io/ripc/pkg/admin/store"
	"mosn.io/ripc/pkg/channel"
	"mosn.io/ripc/pkg/config"
	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/metrics"
	"mosn.io/ripc/pkg/metrics/sink/console"
	"mosn.io/ripc/pkg/metrics/sink/prometheus"
	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

const (
	defaultCapacity  = "100MB"
	defaultRate      = 30
	defaultFrameSize = 1920 * 1080 * 3
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	// conf is the loaded --config file, empty when none is given
	conf = &config.RipcConfig{}

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "Load configuration from `FILE`",
			EnvVar: types.EnvConfig,
		}, cli.StringFlag{
			Name:   "log-level, l",
			Usage:  "ripc log level, trace|debug|info|warning|error|critical|off",
			EnvVar: types.EnvLogLevel,
		}, cli.StringFlag{
			Name:  "log-path",
			Usage: "write logs to `FILE` instead of stderr",
		},
	}

	nameFlag = cli.StringFlag{
		Name:  "name, n",
		Usage: "channel name, e.g. /image",
	}
	waitFlag = cli.DurationFlag{
		Name:  "wait",
		Usage: "wait up to this long for the channel to be created",
	}
	statsFlag = cli.DurationFlag{
		Name:  "stats-interval",
		Usage: "print metrics to stderr at this interval, 0 disables",
	}

	cmdWrite = cli.Command{
		Name:      "write",
		Usage:     "write frames into a channel, round robin over FILEs",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			nameFlag,
			cli.StringFlag{
				Name:  "capacity",
				Usage: "largest frame the channel holds, e.g. `100MB`",
				Value: defaultCapacity,
			}, cli.IntFlag{
				Name:  "rate, r",
				Usage: "frames per second",
				Value: defaultRate,
			}, cli.BoolFlag{
				Name:  "no-throttle",
				Usage: "write as fast as possible, the rate is only published",
			}, cli.IntFlag{
				Name:  "count",
				Usage: "number of frames to write, 0 writes until interrupted",
			}, cli.IntFlag{
				Name:  "frame-size",
				Usage: "size of generated frames when no FILE is given",
				Value: defaultFrameSize,
			}, cli.BoolFlag{
				Name:  "unlink-on-close",
				Usage: "remove the channel on exit",
			}, cli.BoolFlag{
				Name:  "async",
				Usage: "publish from a background goroutine, frames not yet published are replaced by newer ones",
			},
			statsFlag,
		},
		Action: runWrite,
	}

	cmdRead = cli.Command{
		Name:  "read",
		Usage: "read frames from a channel",
		Flags: []cli.Flag{
			nameFlag,
			cli.BoolFlag{
				Name:  "block, b",
				Usage: "wait for a new frame on every read",
			}, cli.IntFlag{
				Name:  "count",
				Usage: "number of frames to read, 0 reads until interrupted or closed",
			}, cli.StringFlag{
				Name:  "out, o",
				Usage: "save the last frame read to `FILE`",
			}, cli.DurationFlag{
				Name:  "timeout",
				Usage: "fail a blocking read after this long",
			}, cli.DurationFlag{
				Name:  "poll",
				Usage: "pause between non blocking reads",
				Value: 10 * time.Millisecond,
			},
			waitFlag,
			statsFlag,
		},
		Action: runRead,
	}

	cmdInspect = cli.Command{
		Name:  "inspect",
		Usage: "dump the header of a channel",
		Flags: []cli.Flag{
			nameFlag,
			cli.StringFlag{
				Name:  "format, f",
				Usage: "json or yaml",
				Value: "json",
			},
		},
		Action: runInspect,
	}

	cmdUnlink = cli.Command{
		Name:  "unlink",
		Usage: "remove a channel",
		Flags: []cli.Flag{
			nameFlag,
		},
		Action: runUnlink,
	}

	cmdServeMetrics = cli.Command{
		Name:  "serve-metrics",
		Usage: "attach a reader and export channel metrics for prometheus",
		Flags: []cli.Flag{
			nameFlag,
			cli.IntFlag{
				Name:  "port, p",
				Usage: "listen port",
				Value: 9100,
			}, cli.StringFlag{
				Name:  "endpoint",
				Usage: "metrics path",
				Value: "/metrics",
			}, cli.DurationFlag{
				Name:  "interval",
				Usage: "header sampling interval",
				Value: time.Second,
			},
			waitFlag,
		},
		Action: runServeMetrics,
	}
)

func setup(c *cli.Context) error {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		conf = cfg
	}
	if level := c.String("log-level"); level != "" {
		conf.Log.Level = level
	}
	if path := c.String("log-path"); path != "" {
		conf.Log.Path = path
	}
	return conf.Apply()
}

// channelConfig merges the channel entry of the config file with the
// command line flags, flags win.
func channelConfig(c *cli.Context) (*config.ChannelConfig, error) {
	name := c.String("name")
	if name == "" {
		return nil, errors.Wrap(types.ErrInvalidName, "--name is required")
	}
	cc := &config.ChannelConfig{Name: name}
	if found, ok := conf.Channel(name); ok {
		*cc = *found
		cc.Name = name
	}

	if s := c.String("capacity"); s != "" && (c.IsSet("capacity") || cc.Capacity == 0) {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(s)); err != nil {
			return nil, errors.Wrapf(types.ErrInvalidCapacity, "capacity %q: %v", s, err)
		}
		cc.Capacity = size
	}
	if c.IsSet("rate") || cc.Rate == 0 {
		cc.Rate = c.Int("rate")
	}
	if c.IsSet("timeout") {
		cc.Timeout.Duration = c.Duration("timeout")
	}
	if c.IsSet("wait") {
		cc.WaitForSegment.Duration = c.Duration("wait")
	}
	if c.Bool("unlink-on-close") {
		cc.UnlinkOnClose = true
	}
	cc.Throttle = !c.Bool("no-throttle") && cc.Rate > 0
	return cc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startMetrics runs the configured sinks plus a console sink when
// --stats-interval is set. The returned func stops them.
func startMetrics(c *cli.Context, extra ...*prometheus.PromSink) (func(), error) {
	sinks, proms, err := conf.Metrics.Sinks()
	if err != nil {
		return nil, err
	}
	interval := conf.Metrics.FlushInterval.Duration
	if d := c.Duration("stats-interval"); d > 0 {
		sinks = append(sinks, console.NewConsoleSink(c.App.ErrWriter))
		interval = d
	}
	for _, p := range extra {
		sinks = append(sinks, p)
		proms = append(proms, p)
	}

	for _, p := range proms {
		store.AddService(&http.Server{Addr: p.Addr(), Handler: p.Mux()}, "prometheus "+p.Addr(), nil, nil)
	}
	if err := store.StartService(); err != nil {
		store.StopService(context.Background())
		return nil, errors.Wrap(err, "start prometheus exporter")
	}

	var flusher *metrics.Flusher
	if len(sinks) > 0 && interval > 0 {
		flusher = metrics.NewFlusher(interval, sinks...)
		flusher.Start()
	}

	return func() {
		if flusher != nil {
			flusher.Stop()
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		store.StopService(ctx)
	}, nil
}

func loadFrames(files []string, frameSize, capacity int) ([][]byte, error) {
	if len(files) == 0 {
		if frameSize <= 0 || frameSize > capacity {
			return nil, errors.Wrapf(types.ErrPayloadTooLarge, "frame size %d, capacity %d", frameSize, capacity)
		}
		frames := make([][]byte, 3)
		for i := range frames {
			frames[i] = make([]byte, frameSize)
			for j := range frames[i] {
				frames[i][j] = byte(i*85 + j)
			}
		}
		return frames, nil
	}

	frames := make([][]byte, 0, len(files))
	for _, f := range files {
		data, err := ioutil.ReadFile(f)
		if err != nil {
			return nil, errors.Wrapf(err, "read frame %s", f)
		}
		if len(data) > capacity {
			return nil, errors.Wrapf(types.ErrPayloadTooLarge, "frame %s is %d bytes, capacity %d", f, len(data), capacity)
		}
		frames = append(frames, data)
	}
	return frames, nil
}

func runWrite(c *cli.Context) error {
	cc, err := channelConfig(c)
	if err != nil {
		return err
	}
	capacity := int(cc.Capacity.Bytes())
	frames, err := loadFrames(c.Args(), c.Int("frame-size"), capacity)
	if err != nil {
		return err
	}

	w, err := channel.NewWriter(cc.Name, capacity, cc.WriterOptions()...)
	if err != nil {
		return err
	}
	defer w.Close()

	stop, err := startMetrics(c)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	count := c.Int("count")
	written := 0
	if c.Bool("async") {
		a := channel.NewAsyncWriter(w)
		for ; (count <= 0 || written < count) && ctx.Err() == nil; written++ {
			if err := a.Write(frames[written%len(frames)]); err != nil {
				a.Close()
				return err
			}
		}
		if err := a.Close(); err != nil {
			return err
		}
		log.StartLogger.Infof("[ripc] [write] channel %s replaced %d frames before publishing", w.Name(), a.Dropped())
	}
	for ; (count <= 0 || written < count) && ctx.Err() == nil; written++ {
		if err := w.WriteContext(ctx, frames[written%len(frames)]); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
	}

	log.StartLogger.Infof("[ripc] [write] channel %s wrote %d frames in %s, last generation %d",
		w.Name(), written, time.Since(start), w.LastWrittenGeneration())
	return nil
}

func openReader(cc *config.ChannelConfig) (*channel.Reader, error) {
	opts, cancel := cc.ReaderOptions()
	defer cancel()
	return channel.NewReader(cc.Name, opts...)
}

func runRead(c *cli.Context) error {
	cc, err := channelConfig(c)
	if err != nil {
		return err
	}
	r, err := openReader(cc)
	if err != nil {
		return err
	}
	defer r.Close()

	stop, err := startMetrics(c)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	var (
		block = c.Bool("block")
		count = c.Int("count")
		out   = c.String("out")
		poll  = c.Duration("poll")
		last  []byte
		read  int
	)
	for count <= 0 || read < count {
		begin := time.Now()
		var (
			gen uint64
			n   int
		)
		if out != "" {
			data, err := r.ReadContext(ctx, block)
			if err != nil {
				if done(ctx, err) {
					break
				}
				return err
			}
			last, gen, n = data, r.LastReadGeneration(), len(data)
		} else {
			f, err := r.ReadInPlaceContext(ctx, block)
			if err != nil {
				if done(ctx, err) {
					break
				}
				return err
			}
			gen, n = f.Generation(), f.Len()
		}
		read++
		log.DefaultLogger.Infof("[ripc] [read] channel %s generation %d, %d bytes, took %s", r.Name(), gen, n, time.Since(begin))

		if !block && (count <= 0 || read < count) {
			select {
			case <-ctx.Done():
			case <-time.After(poll):
			}
		}
	}

	if out != "" && last != nil {
		if err := ioutil.WriteFile(out, last, 0644); err != nil {
			return errors.Wrapf(err, "save frame to %s", out)
		}
	}
	log.StartLogger.Infof("[ripc] [read] channel %s read %d frames, last generation %d", r.Name(), read, r.LastReadGeneration())
	return nil
}

// done reports whether a read error ends the read loop normally.
func done(ctx context.Context, err error) bool {
	if errors.Is(err, types.ErrClosed) {
		return true
	}
	return ctx.Err() != nil && errors.Is(err, types.ErrInterrupted)
}

func runInspect(c *cli.Context) error {
	name := c.String("name")
	if name == "" {
		return errors.Wrap(types.ErrInvalidName, "--name is required")
	}
	info, err := channel.Inspect(name)
	if err != nil {
		return err
	}

	var b []byte
	switch format := c.String("format"); format {
	case "json":
		b, err = json.MarshalIndent(info, "", "  ")
		b = append(b, '\n')
	case "yaml":
		b, err = yaml.Marshal(info)
	default:
		return errors.Errorf("unknown format %s", format)
	}
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(b)
	return err
}

func runUnlink(c *cli.Context) error {
	name := c.String("name")
	if name == "" {
		return errors.Wrap(types.ErrInvalidName, "--name is required")
	}
	if err := shm.Unlink(name); err != nil {
		return err
	}
	log.StartLogger.Infof("[ripc] [unlink] channel %s removed", name)
	return nil
}

func runServeMetrics(c *cli.Context) error {
	cc, err := channelConfig(c)
	if err != nil {
		return err
	}
	r, err := openReader(cc)
	if err != nil {
		return err
	}
	defer r.Close()

	sink := prometheus.NewPromSink(&prometheus.PromConfig{
		Port:     c.Int("port"),
		Endpoint: c.String("endpoint"),
	})
	stop, err := startMetrics(c, sink)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	sampler := newHeaderSampler(r.Name())
	ticker := time.NewTicker(c.Duration("interval"))
	defer ticker.Stop()
	for {
		if _, _, err := r.TryRead(); err != nil {
			return err
		}
		sampler.sample()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
