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
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/automaxprocs/maxprocs"

	"mosn.io/ripc/pkg/log"
)

var Version = "0.1.0"

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ripc"
	app.Version = Version
	app.Compiled = time.Now()
	app.Usage = "ripc moves the latest frame between processes through shared memory."
	app.Flags = globalFlags
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	//commands
	app.Commands = []cli.Command{
		cmdWrite,
		cmdRead,
		cmdInspect,
		cmdUnlink,
		cmdQueue,
		cmdServeMetrics,
	}
	app.Before = setup

	//action
	app.Action = func(c *cli.Context) error {
		return cli.ShowAppHelp(c)
	}
	return app
}

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.StartLogger.Infof)); err != nil {
		log.StartLogger.Warnf("[ripc] [main] set maxprocs failed: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ripc: %v\n", err)
		os.Exit(1)
	}
}
