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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFutexWaitValueChanged(t *testing.T) {
	var word uint32 = 1
	start := time.Now()
	assert.NoError(t, FutexWait(&word, 0, time.Second))
	assert.Less(t, int64(time.Since(start)), int64(500*time.Millisecond))
}

func TestFutexWaitTimeout(t *testing.T) {
	var word uint32
	assert.NoError(t, FutexWait(&word, 0, 5*time.Millisecond))
}

func TestFutexWake(t *testing.T) {
	var word uint32
	done := make(chan struct{})
	go func() {
		for atomic.LoadUint32(&word) == 0 {
			FutexWait(&word, 0, 100*time.Millisecond)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	atomic.StoreUint32(&word, 1)
	assert.NoError(t, FutexWake(&word, 1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken")
	}
}
