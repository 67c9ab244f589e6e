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

package queue

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/pkg/errors"

	"mosn.io/ripc/pkg/shm"
	"mosn.io/ripc/pkg/types"
)

const (
	headerSize = 128
	lengthSize = 8

	// "RIPCQUE\0" read as a little endian word
	layoutMagic   uint64 = 0x0045555143504952
	layoutVersion uint32 = 1

	initWaitRetries  = 50
	initWaitInterval = 2 * time.Millisecond
)

// lock word states
const (
	unlocked uint32 = iota
	locked
	contended
)

// header is the first 128 bytes of a queue segment. head and tail count
// the elements ever read and written, the slot of an element is its
// count modulo capacity.
type header struct {
	magic        uint64
	version      uint32
	flags        uint32
	totalSize    uint64
	maxElement   uint64
	capacity     uint64
	head         uint64
	tail         uint64
	lock         uint32
	owner        uint32
	closed       uint32
	readable     uint32
	writable     uint32
	readWaiters  uint32
	writeWaiters uint32
	_            [44]byte
}

// layout is the process local view of a mapped queue segment.
type layout struct {
	seg        *shm.Segment
	hdr        *header
	slots      []byte
	slotSize   int
	maxElement int
	capacity   int
}

func slotSize(maxElement int) int {
	return lengthSize + (maxElement+7)&^7
}

func segmentSize(maxElement, capacity int) int {
	return headerSize + capacity*slotSize(maxElement)
}

func checkParams(maxElement, capacity int) error {
	if maxElement <= 0 || maxElement > math.MaxInt32 {
		return errors.Wrapf(types.ErrInvalidCapacity, "max element size %d", maxElement)
	}
	if capacity <= 0 || capacity > (math.MaxInt64-headerSize)/slotSize(maxElement) {
		return errors.Wrapf(types.ErrInvalidCapacity, "queue capacity %d of %d byte elements", capacity, maxElement)
	}
	return nil
}

func mapLayout(seg *shm.Segment, maxElement, capacity int) (*layout, error) {
	b, err := seg.Alloc(headerSize)
	if err != nil {
		return nil, errors.Wrapf(types.ErrInvalidSegment, "segment %s: %v", seg.Name(), err)
	}
	l := &layout{
		seg:        seg,
		hdr:        (*header)(unsafe.Pointer(&b[0])),
		slotSize:   slotSize(maxElement),
		maxElement: maxElement,
		capacity:   capacity,
	}
	if l.slots, err = seg.Alloc(capacity * l.slotSize); err != nil {
		return nil, errors.Wrapf(types.ErrInvalidSegment, "segment %s: %v", seg.Name(), err)
	}
	return l, nil
}

// init fills a freshly created header, magic goes last.
func (h *header) init(maxElement, capacity int) {
	h.version = layoutVersion
	h.totalSize = uint64(segmentSize(maxElement, capacity))
	h.maxElement = uint64(maxElement)
	h.capacity = uint64(capacity)
	atomic.StoreUint64(&h.magic, layoutMagic)
}

// readHeader validates the header of an attached segment and returns its
// element size and capacity.
func readHeader(seg *shm.Segment) (maxElement, capacity int, err error) {
	data := seg.Bytes()
	if len(data) < headerSize {
		return 0, 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s is %d bytes, smaller than its header", seg.Name(), len(data))
	}
	h := (*header)(unsafe.Pointer(&data[0]))
	for i := 0; atomic.LoadUint64(&h.magic) != layoutMagic; i++ {
		if i >= initWaitRetries {
			return 0, 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s is not a queue", seg.Name())
		}
		time.Sleep(initWaitInterval)
	}
	if h.version != layoutVersion {
		return 0, 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s layout version %d, want %d", seg.Name(), h.version, layoutVersion)
	}
	maxElement, capacity = int(h.maxElement), int(h.capacity)
	if checkParams(maxElement, capacity) != nil || h.totalSize != seg.TotalAllocatedSize() ||
		uint64(segmentSize(maxElement, capacity)) != h.totalSize {
		return 0, 0, errors.Wrapf(types.ErrInvalidSegment, "segment %s header sizes total=%d element=%d capacity=%d do not match mapping of %d bytes",
			seg.Name(), h.totalSize, h.maxElement, h.capacity, seg.TotalAllocatedSize())
	}
	return maxElement, capacity, nil
}

func (l *layout) slot(n uint64) []byte {
	off := int(n%uint64(l.capacity)) * l.slotSize
	return l.slots[off : off+l.slotSize]
}

// put stores p in the slot of element n, the caller holds the lock.
func (l *layout) put(n uint64, p []byte) {
	s := l.slot(n)
	copy(s[lengthSize:], p)
	binary.LittleEndian.PutUint64(s, uint64(len(p)))
}

// get copies element n out of its slot, the caller holds the lock.
func (l *layout) get(n uint64) []byte {
	s := l.slot(n)
	size := binary.LittleEndian.Uint64(s)
	if size > uint64(l.maxElement) {
		size = uint64(l.maxElement)
	}
	return append([]byte(nil), s[lengthSize:lengthSize+int(size)]...)
}

// length returns the number of queued elements without taking the lock.
func (l *layout) length() int {
	head := atomic.LoadUint64(&l.hdr.head)
	n := atomic.LoadUint64(&l.hdr.tail) - head
	if n > uint64(l.capacity) {
		n = uint64(l.capacity)
	}
	return int(n)
}
