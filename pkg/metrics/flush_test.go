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

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"mosn.io/ripc/pkg/mock"
	"mosn.io/ripc/pkg/types"
)

func TestFlusher(t *testing.T) {
	ResetAll()
	defer ResetAll()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	NewWriterStats("image", true).FramesWritten.Inc(1)

	var mu sync.Mutex
	flushed := 0
	sink := mock.NewMockMetricsSink(ctrl)
	sink.EXPECT().Flush(gomock.Any()).MinTimes(2).Do(func(ms []types.Metrics) {
		mu.Lock()
		defer mu.Unlock()
		flushed++
		assert.Len(t, ms, 1)
		assert.Equal(t, WriterType, ms[0].Type())
	})

	f := NewFlusher(5*time.Millisecond, sink)
	f.Start()
	f.Start()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushed >= 1
	}, time.Second, time.Millisecond)
	// Stop flushes once more before returning
	f.Stop()
	f.Stop()
}

func TestFlusherStopWithoutStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := NewFlusher(0, mock.NewMockMetricsSink(ctrl))
	assert.Equal(t, time.Second, f.interval)
	f.Stop()
}
