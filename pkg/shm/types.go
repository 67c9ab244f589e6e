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
	"sync"

	"github.com/pkg/errors"
	"mosn.io/ripc/pkg/types"
)

const defaultCachelineSize = 128

var (
	errNotEnough = errors.New("segment capacity is not enough")
	errEmpty     = errors.New("segment has zero size")
)

// Segment is a named shared memory region mapped into this process.
//
// The mapping stays valid until Close; the backing file descriptor is
// closed as soon as the region is mapped.
type Segment struct {
	sync.Mutex
	origin []byte

	name    string
	path    string
	offset  int
	size    int
	created bool
	closed  bool
}

func newSegment(name, path string, data []byte, created bool) *Segment {
	return &Segment{
		origin:  data,
		name:    name,
		path:    path,
		size:    len(data),
		created: created,
	}
}

// Name returns the normalized segment name, without a leading slash.
func (s *Segment) Name() string {
	return s.name
}

// Path returns the backing file path.
func (s *Segment) Path() string {
	return s.path
}

// Created reports whether this handle created the segment.
func (s *Segment) Created() bool {
	return s.created
}

// TotalAllocatedSize returns the size of the whole mapped region.
func (s *Segment) TotalAllocatedSize() uint64 {
	return uint64(s.size)
}

// Bytes returns the mapped region, or nil once the segment is closed.
func (s *Segment) Bytes() []byte {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return nil
	}
	return s.origin
}

// Closed reports whether Close has been called on this handle.
func (s *Segment) Closed() bool {
	s.Lock()
	defer s.Unlock()
	return s.closed
}

// Alloc carves the next size bytes out of the region. Offsets are local
// to the handle, so every process that performs the same sequence of
// Alloc calls sees the same layout.
func (s *Segment) Alloc(size int) ([]byte, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, types.ErrClosed
	}
	if size < 0 || s.offset+size > s.size {
		return nil, errors.Wrapf(errNotEnough, "alloc %d bytes at offset %d of %d", size, s.offset, s.size)
	}

	b := s.origin[s.offset : s.offset+size : s.offset+size]
	s.offset += size
	return b, nil
}

// Close unmaps the region. It is safe to call more than once.
func (s *Segment) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	data := s.origin
	s.origin = nil
	return unmap(data)
}
