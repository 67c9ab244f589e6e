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
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

const (
	headerSize = 128

	// "RIPCSHM\0" read as a little endian word
	layoutMagic   uint64 = 0x004d485343504952
	layoutVersion uint32 = 1

	initWaitRetries  = 50
	initWaitInterval = 2 * time.Millisecond
)

// header is the first 128 bytes of every segment. Every field that is
// shared after initialization is accessed atomically.
type header struct {
	magic      uint64
	version    uint32
	flags      uint32
	totalSize  uint64
	capacity   uint64
	generation uint64
	closed     uint32
	notify     uint32
	writerPID  uint32
	readers    uint32
	rate       uint32
	waiters    uint32
	length     [2]uint64
	seq        [2]uint64
	_          [32]byte
}

// layout is the process local view of a mapped segment.
type layout struct {
	seg  *shm.Segment
	hdr  *header
	bufs [2][]byte
}

func segmentSize(capacity int) int {
	return headerSize + 2*capacity
}

func checkCapacity(capacity int) error {
	if capacity <= 0 || uint64(capacity) > (^uint64(0)>>1-headerSize)/2 {
		return errors.Wrapf(types.ErrInvalidCapacity, "capacity %d", capacity)
	}
	return nil
}

// mapLayout carves the header and both buffers out of seg.
func mapLayout(seg *shm.Segment, capacity int) (*layout, error) {
	b, err := seg.Alloc(headerSize)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInvalidSegment, "segment %s: %v", seg.Name(), err)
	}
	l := &layout{
		seg: seg,
		hdr: (*header)(unsafe.Pointer(&b[0])),
	}
	for i := range l.bufs {
		if l.bufs[i], err = seg.Alloc(capacity); err != nil {
			return nil, errors.Wrapf(types.ErrInvalidSegment, "segment %s: %v", seg.Name(), err)
		}
	}
	return l, nil
}

// init fills a freshly created header; magic is stored last so that an
// attaching process never sees a half initialized header as valid.
func (h *header) init(capacity int, rate uint32) {
	h.version = layoutVersion
	h.totalSize = uint64(segmentSize(capacity))
	h.capacity = uint64(capacity)
	atomic.StoreUint32(&h.rate, rate)
	atomic.StoreUint64(&h.magic, layoutMagic)
}

func (h *header) initialized() bool {
	return atomic.LoadUint64(&h.magic) == layoutMagic
}

// readHeaderCapacity validates the header of an attached segment and
// returns its per buffer capacity.
func readHeaderCapacity(seg *shm.Segment) (int, error) {
	data := seg.Bytes()
	if len(data) < headerSize {
		return 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s is %d bytes, smaller than its header", seg.Name(), len(data))
	}
	h := (*header)(unsafe.Pointer(&data[0]))

	for i := 0; !h.initialized(); i++ {
		if i >= initWaitRetries {
			return 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s has no valid magic", seg.Name())
		}
		time.Sleep(initWaitInterval)
	}
	if h.version != layoutVersion {
		return 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s layout version %d, want %d", seg.Name(), h.version, layoutVersion)
	}
	if h.totalSize != seg.TotalAllocatedSize() || h.capacity > h.totalSize ||
		uint64(segmentSize(int(h.capacity))) != h.totalSize {
		return 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s header sizes total=%d capacity=%d do not match mapping of %d bytes",
			seg.Name(), h.totalSize, h.capacity, seg.TotalAllocatedSize())
	}
	return int(h.capacity), nil
}
