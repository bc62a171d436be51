// Copyright 2025 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package stdserver contains a generic HTTP server used by components
// that receive http requests. It also exposes the Prometheus metrics
// endpoint.
package stdserver

import (
	"net"
	"net/http"

	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// A Server receives incoming messages and forwards them to a handler.
type Server struct {
	mux *http.ServeMux
}

// GetServeMux returns the mux that routes requests.
func (s *Server) GetServeMux() *http.ServeMux {
	return s.mux
}

// New constructs the top-level network server. The server executes on
// a background goroutine and drains gracefully when the stopper
// begins shutting down.
func New(ctx *stopper.Context, listener net.Listener, mux *http.ServeMux) *Server {
	srv := &http.Server{
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	ctx.Go(func(ctx *stopper.Context) error {
		err := srv.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "unable to serve requests")
	})
	ctx.Go(func(ctx *stopper.Context) error {
		<-ctx.Stopping()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("did not shut down cleanly")
		} else {
			log.Info("Server shutdown complete")
		}
		return nil
	})

	return &Server{mux}
}

// Mux constructs the http.ServeMux that routes requests.
func Mux(handler http.Handler) *http.ServeMux {
	mux := &http.ServeMux{}
	mux.HandleFunc("/_/healthz", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "OK", http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", logWrapper(handler))
	return mux
}
