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
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"mosn.io/ripc/pkg/types"
)

const maxNameLength = 255

// NormalizeName accepts both the POSIX form ("/image") and the bare form
// ("image") and returns the bare form.
func NormalizeName(name string) (string, error) {
	n := strings.TrimPrefix(name, "/")
	switch {
	case n == "", n == ".", n == "..":
		return "", errors.Wrapf(types.ErrInvalidName, "%q", name)
	case len(n)+len(types.ShmFilePrefix) > maxNameLength:
		return "", errors.Wrapf(types.ErrInvalidName, "%q is longer than %d bytes", name, maxNameLength)
	case strings.ContainsAny(n, "/\x00"):
		return "", errors.Wrapf(types.ErrInvalidName, "%q contains a path separator or NUL", name)
	}
	return n, nil
}

// path returns the backing file for an already normalized name.
func path(name string) string {
	return filepath.Join(types.RipcShmPath, types.ShmFilePrefix+name)
}

// Path returns the backing file for name.
func Path(name string) (string, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	return path(n), nil
}
