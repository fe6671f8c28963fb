/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package profiling serves net/http/pprof's debug endpoints on their own
// listener, separate from the Prometheus /metrics endpoint, so a
// deployment can enable CPU/heap profiling of a running CSE without
// exposing it on the same address as metrics scraping.
package profiling

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/onem2m-labs/cse-core/internal/logging"
)

// Server serves net/http/pprof's debug handlers.
type Server struct {
	log    logging.Logger
	server *http.Server
}

// NewServer builds a Server listening on addr. It is not started until
// Start is called.
func NewServer(log logging.Logger, addr string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	mux.Handle("/debug/pprof/block", pprof.Handler("block"))

	return &Server{
		log: log,
		server: &http.Server{
			Addr:           addr,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: http.DefaultMaxHeaderBytes,
			Handler:        mux,
		},
	}
}

// Start serves in a background goroutine until Stop is called.
func (s *Server) Start() {
	go func() {
		s.log.Info("starting profiling server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Info("profiling server stopped", "error", err.Error())
		}
	}()
}

// Stop shuts the server down, waiting up to 10 seconds for in-flight
// requests to complete.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Info("error shutting down profiling server", "error", err.Error())
	}
}
