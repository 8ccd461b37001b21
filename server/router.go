// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"
	"github.com/gorilla/mux"
)

var ErrDuplicateRoute = errors.New("duplicate route")

type router struct {
	lock   sync.RWMutex
	router *mux.Router
	routes set.Set[string]
}

func newRouter() *router {
	return &router{
		router: mux.NewRouter(),
		routes: set.Set[string]{},
	}
}

func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	r.router.ServeHTTP(w, req)
}

// AddRouter serves [handler] at [url] and every path below it.
func (r *router) AddRouter(url string, handler http.Handler) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.routes.Contains(url) {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, url)
	}
	r.routes.Add(url)
	r.router.Handle(url, handler)
	r.router.PathPrefix(url + "/").Handler(handler)
	return nil
}

// filterInvalidHosts rejects requests whose Host header is a name outside
// [allowedHosts]. IP hosts are always accepted.
func filterInvalidHosts(handler http.Handler, allowedHosts []string) http.Handler {
	allowed := set.Set[string]{}
	for _, host := range allowedHosts {
		if host == "*" {
			return handler
		}
		allowed.Add(strings.ToLower(host))
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "" {
			handler.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		if net.ParseIP(host) != nil {
			handler.ServeHTTP(w, r)
			return
		}
		if !allowed.Contains(strings.ToLower(host)) {
			http.Error(w, "invalid host specified", http.StatusForbidden)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
