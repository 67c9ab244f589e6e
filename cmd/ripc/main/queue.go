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
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/queue"
	"mosn.io/ripc/pkg/types"
)

var cmdQueue = cli.Command{
	Name:  "queue",
	Usage: "move elements through a bounded shared memory queue",
	Subcommands: []cli.Command{
		{
			Name:      "push",
			Usage:     "append each FILE as one element, waiting while the queue is full",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				nameFlag,
				cli.StringFlag{
					Name:  "element-size",
					Usage: "largest element the queue holds, e.g. `1MB`",
					Value: "1MB",
				}, cli.IntFlag{
					Name:  "capacity",
					Usage: "number of elements the queue holds",
					Value: 16,
				}, cli.DurationFlag{
					Name:  "timeout",
					Usage: "give up on a full queue after this long, 0 waits forever",
				},
				statsFlag,
			},
			Action: runQueuePush,
		}, {
			Name:  "pop",
			Usage: "remove elements, oldest first",
			Flags: []cli.Flag{
				nameFlag,
				waitFlag,
				cli.IntFlag{
					Name:  "count",
					Usage: "number of elements to wait for, 0 takes whatever is queued",
				}, cli.StringFlag{
					Name:  "out, o",
					Usage: "save elements as numbered files in `DIR`",
				}, cli.DurationFlag{
					Name:  "timeout",
					Usage: "give up on an empty queue after this long, 0 waits forever",
				},
				statsFlag,
			},
			Action: runQueuePop,
		}, {
			Name:   "shutdown",
			Usage:  "close the queue for every attached process",
			Flags:  []cli.Flag{nameFlag},
			Action: runQueueShutdown,
		},
	},
}

func queueName(c *cli.Context) (string, error) {
	name := c.String("name")
	if name == "" {
		return "", errors.Wrap(types.ErrInvalidName, "--name is required")
	}
	return name, nil
}

func runQueuePush(c *cli.Context) error {
	name, err := queueName(c)
	if err != nil {
		return err
	}
	if len(c.Args()) == 0 {
		return errors.New("no FILE to push")
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(c.String("element-size"))); err != nil {
		return errors.Wrapf(types.ErrInvalidCapacity, "element size %q: %v", c.String("element-size"), err)
	}

	q, err := queue.Create(name, int(size.Bytes()), c.Int("capacity"), queue.WithTimeout(c.Duration("timeout")))
	if err != nil {
		return err
	}
	defer q.Close()

	stop, err := startMetrics(c)
	if err != nil {
		return err
	}
	defer stop()

	ctx, cancel := signalContext()
	defer cancel()

	for _, file := range c.Args() {
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "read element %s", file)
		}
		if err := q.WriteContext(ctx, data); err != nil {
			return errors.Wrapf(err, "push %s", file)
		}
	}
	log.StartLogger.Infof("[ripc] [queue] queue %s pushed %d elements, %d queued", q.Name(), len(c.Args()), q.Len())
	return nil
}

func runQueuePop(c *cli.Context) error {
	name, err := queueName(c)
	if err != nil {
		return err
	}
	opts := []queue.Option{queue.WithTimeout(c.Duration("timeout"))}
	if wait := c.Duration("wait"); wait > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), wait)
		defer cancel()
		opts = append(opts, queue.WithWaitForSegment(ctx))
	}
	q, err := queue.Open(name, opts...)
	if err != nil {
		return err
	}
	defer q.Close()

	stop, err := startMetrics(c)
	if err != nil {
		return err
	}
	defer stop()

	var elements [][]byte
	if count := c.Int("count"); count > 0 {
		ctx, cancel := signalContext()
		defer cancel()
		for len(elements) < count {
			p, err := q.ReadContext(ctx)
			if err != nil {
				return err
			}
			elements = append(elements, p)
		}
	} else if elements, err = q.ReadAll(); err != nil {
		return err
	}

	out := c.String("out")
	if out != "" {
		if err := os.MkdirAll(out, 0755); err != nil {
			return errors.Wrapf(err, "create %s", out)
		}
	}
	for i, p := range elements {
		if out != "" {
			file := filepath.Join(out, fmt.Sprintf("%06d", i))
			if err := ioutil.WriteFile(file, p, 0644); err != nil {
				return errors.Wrapf(err, "save element to %s", file)
			}
		}
		fmt.Fprintf(c.App.Writer, "%d\t%d bytes\n", i, len(p))
	}
	log.StartLogger.Infof("[ripc] [queue] queue %s popped %d elements, %d left", q.Name(), len(elements), q.Len())
	return nil
}

func runQueueShutdown(c *cli.Context) error {
	name, err := queueName(c)
	if err != nil {
		return err
	}
	q, err := queue.Open(name)
	if err != nil {
		return err
	}
	defer q.Close()
	return q.Shutdown()
}
