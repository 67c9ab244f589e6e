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

package channel

import (
	"sync/atomic"

	uatomic "go.uber.org/atomic"
)

// Frame is a view of a published frame that borrows the shared buffer.
// It stays usable until the next call on the Reader that returned it.
type Frame struct {
	generation uint64
	data       []byte

	seq      *uint64
	seqValue uint64
	expired  uatomic.Bool
}

var emptyFrame = &Frame{}

// Generation returns the published generation of the frame, 0 for the
// empty frame of a channel nothing has been written to.
func (f *Frame) Generation() uint64 {
	return f.generation
}

// Len returns the payload length.
func (f *Frame) Len() int {
	return len(f.data)
}

// Bytes returns the payload, or nil once the frame has expired.
func (f *Frame) Bytes() []byte {
	if f.expired.Load() {
		return nil
	}
	return f.data
}

// Valid reports whether the payload is still the published one: the
// reader has not moved on and the writer has not started reusing the
// buffer.
func (f *Frame) Valid() bool {
	if f.expired.Load() {
		return false
	}
	return f.seq == nil || atomic.LoadUint64(f.seq) == f.seqValue
}

// CopyTo copies the payload into dst and reports whether the copy is
// consistent. The number of bytes copied is min(len(dst), Len()).
func (f *Frame) CopyTo(dst []byte) (int, bool) {
	if !f.Valid() {
		return 0, false
	}
	n := copy(dst, f.data)
	return n, f.Valid()
}

func (f *Frame) expire() {
	if f != nil && f != emptyFrame {
		f.expired.Store(true)
	}
}
