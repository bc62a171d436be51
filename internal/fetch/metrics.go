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
	"github.com/cockroachdb/dataset-ingest/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeFailure = "failure"
	outcomeSuccess = "success"
)

var (
	attemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetch_attempt_seconds",
		Help:    "the time spent in a single download attempt",
		Buckets: metrics.LatencyBuckets,
	}, []string{"outcome"})
	retryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetch_retry_count",
		Help: "the total number of times a download was retried",
	}, []string{"host"})
)
