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
	"net"
	"net/http"
	"sync"

	"mosn.io/pkg/utils"

	"mosn.io/ripc/pkg/log"
)

var lock = new(sync.Mutex)

type service struct {
	start bool
	*http.Server
	name     string
	listener net.Listener
	init     func()
	exit     func()
}

var services []*service

// AddService registers an http server, replacing a registered server on
// the same address. It is started by StartService.
func AddService(s *http.Server, name string, init func(), exit func()) {
	lock.Lock()
	defer lock.Unlock()
	for i, srv := range services {
		if srv.Addr == s.Addr && !srv.start {
			services[i] = &service{Server: s, name: name, init: init, exit: exit}
			return
		}
	}
	services = append(services, &service{Server: s, name: name, init: init, exit: exit})
}

// StartService listens on every registered address not started yet and
// serves it in the background.
func StartService() error {
	lock.Lock()
	defer lock.Unlock()

	for _, srv := range services {
		if srv.start {
			continue
		}
		s := srv

		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
		if s.name != "" {
			log.StartLogger.Infof("[ripc] [admin] start service %s on %s", s.name, ln.Addr().String())
		}
		if s.init != nil {
			s.init()
		}
		s.start = true

		utils.GoWithRecover(func() {
			if err := s.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.DefaultLogger.Errorf("[ripc] [admin] service %s stopped: %v", s.name, err)
			}
		}, func(r interface{}) {
			log.DefaultLogger.Errorf("[ripc] [admin] service %s panic %v", s.name, r)
		})
	}
	return nil
}

// ServiceAddr returns the bound address of a started service.
func ServiceAddr(name string) (net.Addr, bool) {
	lock.Lock()
	defer lock.Unlock()
	for _, s := range services {
		if s.name == name && s.listener != nil {
			return s.listener.Addr(), true
		}
	}
	return nil, false
}

// StopService shuts every registered service down and forgets them.
func StopService(ctx context.Context) {
	lock.Lock()
	defer lock.Unlock()

	for _, s := range services {
		if s.exit != nil {
			s.exit()
		}
		if s.start {
			if err := s.Shutdown(ctx); err != nil {
				log.DefaultLogger.Warnf("[ripc] [admin] shutdown service %s: %v", s.name, err)
			}
		}
	}
	services = services[:0]
}
