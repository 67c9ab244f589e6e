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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosn.io/ripc/pkg/types"
)

func TestAsyncWriterPublishesLatest(t *testing.T) {
	useTempShmPath(t)
	w, r := newPair(t, "async", 16)
	a := NewAsyncWriter(w)

	for i := 0; i < 100; i++ {
		require.NoError(t, a.Write([]byte(fmt.Sprint(i))))
	}
	require.NoError(t, a.Close())

	data, err := r.Read(false)
	require.NoError(t, err)
	assert.Equal(t, "99", string(data))
	assert.LessOrEqual(t, w.LastWrittenGeneration(), uint64(100))
	assert.Equal(t, uint64(100), w.LastWrittenGeneration()+a.Dropped())

	assert.True(t, errors.Is(a.Write([]byte("late")), types.ErrClosed))
	assert.NoError(t, a.Close())
	// the writer is still usable
	require.NoError(t, w.Write([]byte("sync")))
}

func TestAsyncWriterWakesBlockedReader(t *testing.T) {
	useTempShmPath(t)
	w, r := newPair(t, "async-wake", 16)
	a := NewAsyncWriter(w)
	defer a.Close()

	got := make(chan []byte, 1)
	go func() {
		data, err := r.Read(true)
		assert.NoError(t, err)
		got <- data
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, a.Write([]byte("frame")))

	select {
	case data := <-got:
		assert.Equal(t, []byte("frame"), data)
	case <-time.After(2 * time.Second):
		t.Fatal("async frame never published")
	}
}

func TestAsyncWriterErrors(t *testing.T) {
	useTempShmPath(t)
	w, _ := newPair(t, "async-err", 4)
	a := NewAsyncWriter(w)

	assert.True(t, errors.Is(a.Write([]byte("too large")), types.ErrPayloadTooLarge))

	require.NoError(t, w.Close())
	require.NoError(t, a.Write([]byte("x")))
	require.Eventually(t, func() bool {
		return errors.Is(a.Write([]byte("y")), types.ErrClosed)
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(a.Close(), types.ErrClosed))
}

func TestReadAll(t *testing.T) {
	useTempShmPath(t)
	w1, r1 := newPair(t, "left", 16)
	_, r2 := newPair(t, "right", 16)
	w3, r3 := newPair(t, "center", 16)

	require.NoError(t, w1.Write([]byte("l1")))
	require.NoError(t, w3.Write([]byte("c1")))

	got, err := ReadAll(r1, r2, r3)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("l1"), nil, []byte("c1")}, got)

	// already read
	got, err = ReadAll(r1, r2, r3)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{nil, nil, nil}, got)

	require.NoError(t, w1.Write([]byte("l2")))
	require.NoError(t, r3.Close())
	got, err = ReadAll(r1, r2, r3)
	assert.True(t, errors.Is(err, types.ErrClosed))
	assert.Equal(t, []byte("l2"), got[0])

	got, err = ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)
}
