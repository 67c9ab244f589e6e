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

package types

import (
	"os"
)

const devShm = "/dev/shm"

// RipcShmPath is the directory that backs named segments. It is a package
// variable so tests can point it at a scratch directory.
var RipcShmPath = defaultShmPath()

// ShmFilePrefix is prepended to every segment file name.
var ShmFilePrefix = "ripc_"

func defaultShmPath() string {
	if p := os.Getenv(EnvShmPath); p != "" {
		return p
	}
	if info, err := os.Stat(devShm); err == nil && info.IsDir() {
		return devShm
	}
	return os.TempDir()
}

// InitShmPath resets RipcShmPath, creating the directory if needed.
// An empty path restores the default lookup.
func InitShmPath(path string) error {
	if path == "" {
		RipcShmPath = defaultShmPath()
		return nil
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	RipcShmPath = path
	return nil
}
