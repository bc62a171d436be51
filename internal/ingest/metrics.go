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

package ingest

import (
	"github.com/cockroachdb/dataset-ingest/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace groups the ingestion metric taxonomy. Every run emits
// exactly one of the job_* counters; the performance metrics are
// emitted on success only.
const namespace = "ingestion"

var (
	jobSuccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_success_total",
		Help:      "the number of runs that ingested a new file",
	}, metrics.PeriodLabels)
	jobFailure = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_failure_total",
		Help:      "the number of runs that failed for every candidate period",
	}, metrics.PeriodLabels)
	jobSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_skipped_total",
		Help:      "the number of runs skipped because the object already exists",
	}, metrics.PeriodLabels)
	downloadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "download_duration_seconds",
		Help:      "the time spent downloading the source file",
		Buckets:   metrics.LatencyBuckets,
	}, metrics.PeriodLabels)
	uploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_duration_seconds",
		Help:      "the time spent writing the file to the object store",
		Buckets:   metrics.LatencyBuckets,
	}, metrics.PeriodLabels)
	fileSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "file_size_bytes",
		Help:      "the size of the last ingested file",
	}, metrics.PeriodLabels)
	fileSizeMB = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "file_size_mbytes",
		Help:      "the size of the last ingested file, in megabytes",
	}, metrics.PeriodLabels)
	downloadThroughput = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "download_throughput_mbps",
		Help:      "the download throughput of the last ingested file, in MB/s",
	}, metrics.PeriodLabels)
)
