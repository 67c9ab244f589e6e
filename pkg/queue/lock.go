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
	"math"
	"sync/atomic"
	"time"

	"mosn.io/ripc/pkg/log"
	"mosn.io/ripc/pkg/shm"
)

// the longest sleep on the lock word before the holder is checked again
const lockSlice = 10 * time.Millisecond

// lock takes the mutex shared by every process attached to the queue. A
// holder that exited without unlocking is replaced by the caller.
func (q *Queue) lock() {
	h := q.hdr
	if atomic.CompareAndSwapUint32(&h.lock, unlocked, locked) {
		atomic.StoreUint32(&h.owner, q.pid)
		return
	}
	for atomic.SwapUint32(&h.lock, contended) != unlocked {
		if owner := atomic.LoadUint32(&h.owner); owner != 0 && owner != q.pid && !shm.ProcessAlive(int(owner)) {
			if atomic.CompareAndSwapUint32(&h.owner, owner, q.pid) {
				log.DefaultLogger.Alertf(log.AlertQueueLock, "[ripc] [queue] queue %s took over lock of dead pid %d", q.name, owner)
				return
			}
		}
		shm.FutexWait(&h.lock, contended, lockSlice)
	}
	atomic.StoreUint32(&h.owner, q.pid)
}

func (q *Queue) unlock() {
	h := q.hdr
	atomic.StoreUint32(&h.owner, 0)
	if atomic.SwapUint32(&h.lock, unlocked) == contended {
		shm.FutexWake(&h.lock, 1)
	}
}

// signal bumps a futex word and wakes its waiters, if any.
func (q *Queue) signal(word, waiters *uint32) {
	atomic.AddUint32(word, 1)
	if atomic.LoadUint32(waiters) == 0 {
		return
	}
	if err := shm.FutexWake(word, math.MaxInt32); err != nil {
		log.DefaultLogger.Warnf("[ripc] [queue] queue %s wake failed: %v", q.name, err)
	}
}
