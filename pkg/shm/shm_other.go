//go:build !(linux || darwin || freebsd)
// +build !linux,!darwin,!freebsd

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

package shm

import (
	"context"
	"time"

	"mosn.io/ripc/pkg/types"
)

func CreateOrOpen(name string, size int) (*Segment, error) {
	return nil, types.ErrUnsupported
}

func OpenExisting(name string) (*Segment, error) {
	return nil, types.ErrUnsupported
}

func WaitOpen(ctx context.Context, name string, interval time.Duration) (*Segment, error) {
	return nil, types.ErrUnsupported
}

func Unlink(name string) error {
	return types.ErrUnsupported
}

func Exists(name string) bool {
	return false
}

func unmap(data []byte) error {
	return nil
}

func ProcessAlive(pid int) bool {
	return pid > 0
}
