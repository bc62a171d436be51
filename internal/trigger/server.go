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

package trigger

import (
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/dataset-ingest/internal/events"
	"github.com/cockroachdb/dataset-ingest/internal/util/stdserver"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxPayload bounds the size of an event notification body.
const maxPayload = 1 << 20

// Start runs the webhook server that receives storage-creation
// notifications. A non-2xx response tells the event source to
// redeliver; since the handler is idempotent-safe, redelivery of an
// already-processed event is harmless.
func Start(ctx *stopper.Context, config *Config) (*stdserver.Server, error) {
	t, err := New(config)
	if err != nil {
		return nil, err
	}
	l, err := stdserver.Listener(ctx, &config.HTTP)
	if err != nil {
		return nil, err
	}
	return stdserver.New(ctx, l, stdserver.Mux(t.Handler())), nil
}

// Handler returns the http.Handler that decodes notification payloads
// and processes each record.
func (t *Trigger) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		objects, err := events.Parse(body)
		if err != nil {
			log.WithError(err).Warn("discarding undecodable event payload")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Records within one payload are independent; process them
		// concurrently, but bounded.
		var invoked, skipped atomic.Int64
		g, gCtx := errgroup.WithContext(r.Context())
		g.SetLimit(t.config.Workers)
		for _, obj := range objects {
			obj := obj
			g.Go(func() error {
				res, err := t.Handle(gCtx, obj)
				if err != nil {
					return err
				}
				if res.Kind == Invoked {
					invoked.Add(1)
				} else {
					skipped.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Surface the failure so the event source redelivers.
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"invoked": invoked.Load(),
			"skipped": skipped.Load(),
		})
	})
}
