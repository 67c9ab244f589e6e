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

import "errors"

// Error messages
const (
	NotFoundException        = "shared memory segment not found"
	SizeMismatchException    = "shared memory segment size mismatch"
	PayloadTooLargeException = "payload exceeds channel capacity"
	ClosedException          = "channel handle is closed"
	InterruptedException     = "blocking read interrupted"
	InvalidNameException     = "invalid shared memory segment name"
	InvalidCapacityException = "invalid channel capacity"
	InvalidSegmentException  = "invalid shared memory segment layout"
	WriterBusyException      = "channel already has an active writer"
	TimeoutException         = "blocking read timed out"
	UnsupportedException     = "shared memory channels are not supported on this platform"
)

// Errors
var (
	ErrNotFound        = errors.New(NotFoundException)
	ErrSizeMismatch    = errors.New(SizeMismatchException)
	ErrPayloadTooLarge = errors.New(PayloadTooLargeException)
	ErrClosed          = errors.New(ClosedException)
	ErrInterrupted     = errors.New(InterruptedException)
	ErrInvalidName     = errors.New(InvalidNameException)
	ErrInvalidCapacity = errors.New(InvalidCapacityException)
	ErrInvalidSegment  = errors.New(InvalidSegmentException)
	ErrWriterBusy      = errors.New(WriterBusyException)
	ErrTimeout         = errors.New(TimeoutException)
	ErrUnsupported     = errors.New(UnsupportedException)
)

// Roles of a handle attached to a segment, used as the metrics type.
const (
	RoleWriter = "writer"
	RoleReader = "reader"
	RoleQueue  = "queue"
)

// Environment variables understood by ripc.
const (
	EnvShmPath  = "RIPC_SHM_DIR"
	EnvConfig   = "RIPC_CONFIG"
	EnvLogLevel = "LOG_LEVEL"
)
