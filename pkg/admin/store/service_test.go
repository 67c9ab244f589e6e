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

package store

import (
	"context"
	"io/ioutil"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceLifecycle(t *testing.T) {
	defer StopService(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	inited, exited := 0, 0
	AddService(&http.Server{Addr: "127.0.0.1:0", Handler: mux}, "ping", func() { inited++ }, func() { exited++ })
	require.NoError(t, StartService())
	// started services are skipped
	require.NoError(t, StartService())
	assert.Equal(t, 1, inited)

	addr, ok := ServiceAddr("ping")
	require.True(t, ok)
	resp, err := http.Get("http://" + addr.String() + "/ping")
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	StopService(context.Background())
	assert.Equal(t, 1, exited)
	_, ok = ServiceAddr("ping")
	assert.False(t, ok)
}

func TestAddServiceReplacesPendingSameAddr(t *testing.T) {
	defer StopService(context.Background())

	AddService(&http.Server{Addr: "127.0.0.1:0"}, "first", nil, nil)
	AddService(&http.Server{Addr: "127.0.0.1:0"}, "second", nil, nil)
	assert.Len(t, services, 1)
	assert.Equal(t, "second", services[0].name)
}
