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
	"sync"

	"github.com/pkg/errors"
	"mosn.io/pkg/utils"

	"mosn.io/ripc/pkg/types"
)

// ReadAll reads every reader in parallel without blocking. The result
// holds a copy of the newest frame of each reader, in argument order, or
// nil for a reader that has no frame newer than its last read. The first
// failing reader, if any, is reported after all reads are done.
func ReadAll(readers ...*Reader) ([][]byte, error) {
	out := make([][]byte, len(readers))
	errs := make([]error, len(readers))

	var wg sync.WaitGroup
	wg.Add(len(readers))
	for i, r := range readers {
		i, r := i, r
		utils.GoWithRecover(func() {
			out[i], errs[i] = readNew(r)
			wg.Done()
		}, func(p interface{}) {
			errs[i] = errors.Errorf("channel %s read panic: %v", r.Name(), p)
			wg.Done()
		})
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return out, errors.Wrapf(err, "read channel %s", readers[i].Name())
		}
	}
	return out, nil
}

func readNew(r *Reader) ([]byte, error) {
	if r.closed.Load() {
		return nil, types.ErrClosed
	}
	if !r.NewVersionAvailable() {
		return nil, nil
	}
	return r.Read(false)
}
