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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/dataset-ingest/internal/events"
	"github.com/cockroachdb/dataset-ingest/internal/jobs"
	"github.com/cockroachdb/dataset-ingest/internal/period"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// jobAPI is a stand-in for the batch-job service.
type jobAPI struct {
	calls    atomic.Int32
	lastAuth atomic.Value
	lastRun  atomic.Value
	reject   atomic.Bool
}

func (j *jobAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		j.calls.Add(1)
		j.lastAuth.Store(req.Header.Get("Authorization"))
		var run jobs.RunRequest
		if err := json.NewDecoder(req.Body).Decode(&run); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		j.lastRun.Store(run)
		if j.reject.Load() {
			http.Error(w, `{"error_code": "RESOURCE_DOES_NOT_EXIST"}`, http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"run_id": %d}`, j.calls.Load())
	})
}

func testTrigger(t *testing.T, api *jobAPI) *Trigger {
	t.Helper()
	r := require.New(t)

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	t.Setenv("JOB_TOKEN", "sekrit")

	cfg := &Config{
		FileContains: "yellow_tripdata",
		FileSuffix:   ".parquet",
		JobHost:      srv.URL,
		JobID:        42,
		JobTimeout:   time.Second,
		Prefix:       "raw",
		SecretName:   "JOB_TOKEN",
		SecretURL:    "env://",
		Workers:      2,
	}
	cfg.HTTP.BindAddr = ":0"
	r.NoError(cfg.Preflight())
	tr, err := New(cfg)
	r.NoError(err)
	return tr
}

func TestHandleInvokes(t *testing.T) {
	r := require.New(t)
	api := &jobAPI{}
	tr := testTrigger(t, api)

	invoked := triggerInvoked.WithLabelValues("2025", "05")
	before := testutil.ToFloat64(invoked)

	ev := events.Object{
		Bucket: "datasets",
		Key:    "raw/year=2025/month=05/yellow_tripdata_2025-05.parquet",
	}
	res, err := tr.Handle(context.Background(), ev)
	r.NoError(err)
	r.Equal(Invoked, res.Kind)
	r.NotZero(res.RunID)
	r.Equal("Bearer sekrit", api.lastAuth.Load())

	run := api.lastRun.Load().(jobs.RunRequest)
	r.Equal(int64(42), run.JobID)
	r.Equal("s3://datasets/raw/year=2025/month=05/yellow_tripdata_2025-05.parquet",
		run.NotebookParams.InputPath)
	r.Equal("2025", run.NotebookParams.Year)
	r.Equal("05", run.NotebookParams.Month)

	// A redelivered event produces an identical run request.
	res2, err := tr.Handle(context.Background(), ev)
	r.NoError(err)
	r.Equal(res.Request, res2.Request)
	r.Equal(int32(2), api.calls.Load())

	// One invoked metric per event, labeled with the period.
	r.Equal(before+2, testutil.ToFloat64(invoked))
}

func TestHandleFilters(t *testing.T) {
	tcs := []struct {
		name string
		key  string
	}{
		{"wrongPrefix", "staging/year=2025/month=05/yellow_tripdata_2025-05.parquet"},
		{"noPartition", "raw/yellow_tripdata_2025-05.parquet"},
		{"wrongSuffix", "raw/year=2025/month=05/yellow_tripdata_2025-05.csv"},
		{"wrongDataset", "raw/year=2025/month=05/green_tripdata_2025-05.parquet"},
		{"tempObject", "raw/year=2025/month=05/.put-12345"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)
			api := &jobAPI{}
			tr := testTrigger(t, api)

			before := testutil.ToFloat64(triggerSkipped)
			res, err := tr.Handle(context.Background(),
				events.Object{Bucket: "datasets", Key: tc.key})
			r.NoError(err)
			r.Equal(SkippedEvent, res.Kind)
			r.Nil(res.Request)
			// A filtered event never touches the secret store or the
			// job API.
			r.Equal(int32(0), api.calls.Load())
			r.Equal(before+1, testutil.ToFloat64(triggerSkipped))
		})
	}
}

func TestHandleCredentialFailure(t *testing.T) {
	r := require.New(t)
	api := &jobAPI{}
	tr := testTrigger(t, api)
	tr.config.SecretName = "MISSING_BY_CONSTRUCTION"

	failures := triggerFailure.WithLabelValues("credential")
	before := testutil.ToFloat64(failures)

	_, err := tr.Handle(context.Background(), events.Object{
		Bucket: "datasets",
		Key:    "raw/year=2025/month=05/yellow_tripdata_2025-05.parquet",
	})
	r.ErrorIs(err, ErrCredential)
	r.Equal(int32(0), api.calls.Load())
	r.Equal(before+1, testutil.ToFloat64(failures))
}

func TestHandleInvokeFailure(t *testing.T) {
	r := require.New(t)
	api := &jobAPI{}
	api.reject.Store(true)
	tr := testTrigger(t, api)

	failures := triggerFailure.WithLabelValues("invoke")
	before := testutil.ToFloat64(failures)

	_, err := tr.Handle(context.Background(), events.Object{
		Bucket: "datasets",
		Key:    "raw/year=2025/month=05/yellow_tripdata_2025-05.parquet",
	})
	r.ErrorIs(err, jobs.ErrInvoke)
	r.Equal(int32(1), api.calls.Load())
	r.Equal(before+1, testutil.ToFloat64(failures))
}

func TestHandlerEndToEnd(t *testing.T) {
	r := require.New(t)
	api := &jobAPI{}
	tr := testTrigger(t, api)

	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()

	payload := `{
	  "Records": [
	    {"s3": {"bucket": {"name": "datasets"},
	            "object": {"key": "raw/year%3D2025/month%3D05/yellow_tripdata_2025-05.parquet"}}},
	    {"s3": {"bucket": {"name": "datasets"},
	            "object": {"key": "raw/other.txt"}}}
	  ]
	}`
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(payload))
	r.NoError(err)
	defer resp.Body.Close()
	r.Equal(http.StatusOK, resp.StatusCode)

	var summary map[string]int64
	r.NoError(json.NewDecoder(resp.Body).Decode(&summary))
	r.Equal(int64(1), summary["invoked"])
	r.Equal(int64(1), summary["skipped"])
	r.Equal(int32(1), api.calls.Load())
}

func TestHandlerRejects(t *testing.T) {
	r := require.New(t)
	api := &jobAPI{}
	tr := testTrigger(t, api)

	srv := httptest.NewServer(tr.Handler())
	defer srv.Close()

	// Non-POST methods are refused.
	resp, err := http.Get(srv.URL)
	r.NoError(err)
	resp.Body.Close()
	r.Equal(http.StatusMethodNotAllowed, resp.StatusCode)

	// Undecodable payloads are discarded, not retried.
	resp, err = http.Post(srv.URL, "application/json", strings.NewReader("not json"))
	r.NoError(err)
	resp.Body.Close()
	r.Equal(http.StatusBadRequest, resp.StatusCode)

	// A processing failure surfaces as a 5xx so the source redelivers.
	api.reject.Store(true)
	resp, err = http.Post(srv.URL, "application/json", strings.NewReader(`{
	  "detail": {"bucket": {"name": "datasets"},
	             "object": {"key": "raw/year=2025/month=05/yellow_tripdata_2025-05.parquet"}}
	}`))
	r.NoError(err)
	resp.Body.Close()
	r.Equal(http.StatusInternalServerError, resp.StatusCode)
}

func TestMatch(t *testing.T) {
	r := require.New(t)
	tr := testTrigger(t, &jobAPI{})

	p, ok := tr.match("raw/year=2024/month=12/yellow_tripdata_2024-12.parquet")
	r.True(ok)
	r.Equal(period.Period{Year: 2024, Month: time.December}, p)

	// An empty prefix matches keys anywhere in the store.
	tr.config.Prefix = ""
	_, ok = tr.match("elsewhere/year=2024/month=12/yellow_tripdata_2024-12.parquet")
	r.True(ok)
}

func TestConfigPreflight(t *testing.T) {
	r := require.New(t)

	cfg := &Config{JobID: 42, JobTimeout: time.Second, SecretName: "X", SecretURL: "env://"}
	cfg.HTTP.BindAddr = ":0"
	r.ErrorContains(cfg.Preflight(), "jobHost")

	cfg.JobHost = "http://example.com"
	cfg.JobID = 0
	r.ErrorContains(cfg.Preflight(), "jobID")

	cfg.JobID = 42
	cfg.SecretName = ""
	r.ErrorContains(cfg.Preflight(), "secretName")

	cfg.SecretName = "X"
	r.NoError(cfg.Preflight())
	r.Equal(1, cfg.Workers)
}
