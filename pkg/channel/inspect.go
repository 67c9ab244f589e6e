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
	"unsafe"

	"mosn.io/ripc/pkg/shm"
)

// Info is a snapshot of a channel header.
type Info struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Version     uint32    `json:"version"`
	TotalSize   uint64    `json:"total_size"`
	Capacity    uint64    `json:"capacity"`
	Generation  uint64    `json:"generation"`
	Closed      bool      `json:"closed"`
	WriterPID   uint32    `json:"writer_pid"`
	WriterAlive bool      `json:"writer_alive"`
	Readers     uint32    `json:"readers"`
	Waiters     uint32    `json:"waiters"`
	Rate        uint32    `json:"rate"`
	Lengths     [2]uint64 `json:"lengths"`
	Seqs        [2]uint64 `json:"seqs"`
}

// Inspect reads the header of the named channel without attaching to it
// as a reader.
func Inspect(name string) (*Info, error) {
	seg, err := shm.OpenExisting(name)
	if err != nil {
		return nil, err
	}
	defer seg.Close()

	if _, err := readHeaderCapacity(seg); err != nil {
		return nil, err
	}
	h := (*header)(unsafe.Pointer(&seg.Bytes()[0]))

	pid := atomic.LoadUint32(&h.writerPID)
	info := &Info{
		Name:        seg.Name(),
		Path:        seg.Path(),
		Version:     h.version,
		TotalSize:   h.totalSize,
		Capacity:    h.capacity,
		Generation:  atomic.LoadUint64(&h.generation),
		Closed:      atomic.LoadUint32(&h.closed) != 0,
		WriterPID:   pid,
		WriterAlive: shm.ProcessAlive(int(pid)),
		Readers:     atomic.LoadUint32(&h.readers),
		Waiters:     atomic.LoadUint32(&h.waiters),
		Rate:        atomic.LoadUint32(&h.rate),
	}
	for i := range h.length {
		info.Lengths[i] = atomic.LoadUint64(&h.length[i])
		info.Seqs[i] = atomic.LoadUint64(&h.seq[i])
	}
	return info, nil
}
