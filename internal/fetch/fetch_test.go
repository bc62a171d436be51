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

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a configuration with an aggressive retry schedule
// so tests finish quickly.
func testConfig(attempts int) *Config {
	return &Config{
		Attempts:       attempts,
		AttemptTimeout: 5 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxRetryTime:   time.Minute,
		RetryableCodes: []int{429},
	}
}

func TestFetchSuccess(t *testing.T) {
	r := require.New(t)

	const payload = "not actually a parquet file"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	f := New(testConfig(3))
	res, err := f.Fetch(context.Background(), srv.URL)
	r.NoError(err)
	r.Equal([]byte(payload), res.Body)
	r.Equal(1, res.Attempts)
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.NotFound(w, req)
	}))
	defer srv.Close()

	f := New(testConfig(5))
	_, err := f.Fetch(context.Background(), srv.URL)
	r.ErrorIs(err, ErrNotFound)
	r.False(Retryable(err))
	// A 404 must never be retried.
	r.Equal(int32(1), calls.Load())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busted", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "eventually fine")
	}))
	defer srv.Close()

	retries := retryCount.WithLabelValues(hostOf(srv.URL))
	before := testutil.ToFloat64(retries)

	f := New(testConfig(5))
	res, err := f.Fetch(context.Background(), srv.URL)
	r.NoError(err)
	r.Equal([]byte("eventually fine"), res.Body)
	r.Equal(3, res.Attempts)
	// One retry metric per re-attempt, labeled by host.
	r.Equal(before+2, testutil.ToFloat64(retries))
}

func TestHostOf(t *testing.T) {
	a := assert.New(t)
	a.Equal("example.com:8080", hostOf("https://example.com:8080/trip-data/x.parquet"))
	a.Equal("unknown", hostOf("not a url"))
	a.Equal("unknown", hostOf("/relative/path"))
}

func TestFetchExhaustsAttempts(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "busted", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := New(testConfig(3))
	_, err := f.Fetch(context.Background(), srv.URL)
	r.ErrorIs(err, ErrTransient)
	r.True(Retryable(err))
	// The attempt budget is a hard bound.
	r.Equal(int32(3), calls.Load())
}

func TestFetchConfiguredRetryableCode(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	f := New(testConfig(3))
	res, err := f.Fetch(context.Background(), srv.URL)
	r.NoError(err)
	r.Equal(2, res.Attempts)
}

func TestFetchFatalStatus(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(testConfig(5))
	_, err := f.Fetch(context.Background(), srv.URL)
	r.Error(err)
	r.NotErrorIs(err, ErrNotFound)
	r.False(Retryable(err))
	r.Equal(int32(1), calls.Load())
}

func TestFetchPartialTransfer(t *testing.T) {
	r := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		// Declare more bytes than we send, then cut the connection so
		// the client sees a truncated body.
		w.Header().Set("Content-Length", "1048576")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("short"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	}))
	defer srv.Close()

	f := New(testConfig(3))
	_, err := f.Fetch(context.Background(), srv.URL)
	// The truncated payload must never be accepted as a success.
	r.Error(err)
	r.True(Retryable(err))
	r.Equal(int32(3), calls.Load())
}

func TestFetchContextCancel(t *testing.T) {
	r := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "busted", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(testConfig(5))
	_, err := f.Fetch(ctx, srv.URL)
	r.Error(err)
}

func TestConfigPreflight(t *testing.T) {
	r := require.New(t)

	cfg := testConfig(0)
	r.ErrorContains(cfg.Preflight(), "fetchAttempts")

	cfg = testConfig(1)
	cfg.MaxBackoff = 0
	r.ErrorContains(cfg.Preflight(), "fetchRetryMaxInterval")

	cfg = testConfig(1)
	r.NoError(cfg.Preflight())
}
