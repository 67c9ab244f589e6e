//go:build linux || darwin || freebsd
// +build linux darwin freebsd

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
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/types"
)

const (
	// a creator may still be truncating the file when another process opens it.
	sizeSettleRetries  = 50
	sizeSettleInterval = 2 * time.Millisecond
)

// CreateOrOpen creates the named segment of size bytes, or opens it when it
// already exists. An existing segment of a different size is rejected with
// types.ErrSizeMismatch.
func CreateOrOpen(name string, size int) (*Segment, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, errors.Wrapf(types.ErrInvalidCapacity, "segment %s size %d", n, size)
	}

	p := path(n)
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err == nil {
		return create(n, p, f, size)
	}
	if !os.IsExist(err) {
		return nil, errors.Wrapf(err, "create segment %s", p)
	}

	seg, err := open(n, p)
	if errors.Is(err, errEmpty) {
		// the creator died before sizing the file
		return reclaim(n, p, size)
	}
	if err != nil {
		return nil, err
	}
	if seg.size != size {
		seg.Close()
		return nil, errors.Wrapf(types.ErrSizeMismatch, "mmap target path %s exists and its size %d mismatch %d", p, seg.size, size)
	}
	return seg, nil
}

// OpenExisting maps an existing segment. It never creates one.
func OpenExisting(name string) (*Segment, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	seg, err := open(n, path(n))
	if errors.Is(err, errEmpty) {
		return nil, errors.Wrapf(types.ErrInvalidSegment, "%v", err)
	}
	return seg, err
}

// WaitOpen retries OpenExisting every interval until the segment shows up
// or ctx is done.
func WaitOpen(ctx context.Context, name string, interval time.Duration) (*Segment, error) {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		seg, err := OpenExisting(name)
		if err == nil || !errors.Is(err, types.ErrNotFound) {
			return seg, err
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(types.ErrTimeout, "wait for segment %s: %v", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Unlink removes the named segment. Existing mappings stay valid.
func Unlink(name string) error {
	p, err := Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(types.ErrNotFound, "unlink %s", p)
		}
		return errors.Wrapf(err, "unlink %s", p)
	}
	return nil
}

// Exists reports whether the named segment is present.
func Exists(name string) bool {
	p, err := Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

func create(name, p string, f *os.File, size int) (*Segment, error) {
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(p)
		return nil, errors.Wrapf(err, "truncate %s to %d", p, size)
	}
	data, err := mmap(f, size)
	if err != nil {
		os.Remove(p)
		return nil, errors.Wrapf(err, "mmap %s", p)
	}
	return newSegment(name, p, data, true), nil
}

// reclaim sizes a segment file left empty and maps it as if this process
// had created it.
func reclaim(name, p string, size int) (*Segment, error) {
	f, err := os.OpenFile(p, os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(types.ErrNotFound, "reclaim segment %s", p)
		}
		return nil, errors.Wrapf(err, "reclaim segment %s", p)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat segment %s", p)
	}
	if info.Size() != 0 {
		// someone else sized it meanwhile
		return CreateOrOpen(name, size)
	}
	log.StartLogger.Warnf("[ripc] [shm] segment %s was left empty by its creator, resizing to %d", p, size)
	if err := f.Truncate(int64(size)); err != nil {
		return nil, errors.Wrapf(err, "truncate %s to %d", p, size)
	}
	data, err := mmap(f, size)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", p)
	}
	return newSegment(name, p, data, true), nil
}

func open(name, p string) (*Segment, error) {
	f, err := os.OpenFile(p, os.O_RDWR, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(types.ErrNotFound, "open segment %s", p)
		}
		return nil, errors.Wrapf(err, "open segment %s", p)
	}
	defer f.Close()

	var size int64
	for i := 0; i < sizeSettleRetries; i++ {
		info, err := f.Stat()
		if err != nil {
			return nil, errors.Wrapf(err, "stat segment %s", p)
		}
		if size = info.Size(); size > 0 {
			break
		}
		time.Sleep(sizeSettleInterval)
	}
	if size <= 0 {
		return nil, errors.Wrapf(errEmpty, "segment %s", p)
	}

	data, err := mmap(f, int(size))
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", p)
	}
	return newSegment(name, p, data, false), nil
}

func mmap(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	if err := unix.Mlock(data); err != nil {
		log.StartLogger.Warnf("[ripc] [shm] mlock %s failed: %v", f.Name(), err)
	}
	return data, nil
}

func unmap(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}

// ProcessAlive reports whether a process with the given pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
