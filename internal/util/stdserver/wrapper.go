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

package stdserver

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	httpCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_status_codes_total",
		Help: "the number of HTTP responses by status code",
	}, []string{"code"})
	httpLatency = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "http_latency_seconds",
		Help: "the HTTP response latency for successful requests",
	})
	httpPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_handler_panics_total",
		Help: "the number of requests that ended in a handler panic",
	})
	httpPayloadIn = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "http_payload_in_bytes",
		Help: "the number of HTTP payload body bytes read",
	})
)

// countingReader tracks how much of the notification payload was
// actually consumed.
type countingReader struct {
	io.ReadCloser
	count int64
}

func (c *countingReader) Read(dest []byte) (int, error) {
	n, err := c.ReadCloser.Read(dest)
	c.count += int64(n)
	return n, err
}

// statusWriter captures the response code and size for the log entry.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	count      int64
}

var _ http.ResponseWriter = (*statusWriter)(nil)

func (s *statusWriter) Write(buf []byte) (int, error) {
	if s.statusCode == 0 {
		s.statusCode = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(buf)
	s.count += int64(n)
	return n, err
}

func (s *statusWriter) WriteHeader(statusCode int) {
	s.statusCode = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

// logWrapper instruments the event-handling endpoints. A panic in a
// handler is reported as a 500 so the event source redelivers that
// payload; the server itself keeps running for subsequent deliveries.
func logWrapper(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := &countingReader{ReadCloser: r.Body}
		r.Body = body
		spy := &statusWriter{ResponseWriter: w}

		start := time.Now()
		defer func() {
			latency := time.Since(start)
			entry := log.WithFields(log.Fields{
				"elapsed":       latency,
				"method":        r.Method,
				"path":          r.URL.Path,
				"requestBytes":  body.count,
				"responseBytes": spy.count,
				"status":        spy.statusCode,
			})

			if p := recover(); p != nil {
				httpPanics.Inc()
				if spy.statusCode == 0 {
					spy.statusCode = http.StatusInternalServerError
					http.Error(w, "internal error", spy.statusCode)
				}
				httpCodes.WithLabelValues(strconv.Itoa(spy.statusCode)).Inc()
				if err, ok := p.(error); ok {
					entry = entry.WithError(err)
				} else {
					entry = entry.WithField("panic", p)
				}
				entry.Error("request handler panicked")
				return
			}

			if spy.statusCode == 0 {
				spy.statusCode = http.StatusOK
			}
			httpCodes.WithLabelValues(strconv.Itoa(spy.statusCode)).Inc()
			httpLatency.Observe(latency.Seconds())
			httpPayloadIn.Observe(float64(body.count))
			entry.Debug("request served")
		}()

		h.ServeHTTP(spy, r)
	})
}
