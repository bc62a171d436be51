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

// Package ingest contains the orchestrator that downloads one monthly
// dataset file and writes it to partitioned object storage exactly
// once.
package ingest

import (
	"bytes"
	"context"
	"time"

	"github.com/cockroachdb/dataset-ingest/internal/bucket"
	"github.com/cockroachdb/dataset-ingest/internal/fetch"
	"github.com/cockroachdb/dataset-ingest/internal/period"
	"github.com/cockroachdb/dataset-ingest/internal/util/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Kind classifies the terminal state of a run.
type Kind int

const (
	// Failure indicates no candidate period could be ingested, or the
	// run was aborted by a fatal error.
	Failure Kind = iota
	// Skipped indicates the target object already exists.
	Skipped
	// Success indicates a new object was written.
	Success
)

// An Attempt records why one candidate period could not be ingested.
type Attempt struct {
	Period period.Period
	Err    error
}

// An Outcome is the terminal report of one run. Exactly one Outcome
// is produced per invocation; it has no lifecycle beyond that.
type Outcome struct {
	Kind     Kind
	Period   period.Period // The period written or skipped; primary on failure.
	Key      string        // The object key written or found.
	Size     int64         // Payload size in bytes.
	Download time.Duration
	Upload   time.Duration
	Attempts []Attempt // Failure detail for each period tried.
	Err      error     // The error that ended the run, if any.
}

// An Ingester runs the ingestion loop. Each invocation is an
// independent unit of work; cross-invocation coordination happens only
// through the object store's existence checks.
type Ingester struct {
	bucket  bucket.Bucket
	config  *Config
	fetcher *fetch.Fetcher
}

// New constructs an Ingester. The configuration must have been
// preflighted.
func New(config *Config) (*Ingester, error) {
	b, err := config.NewBucket()
	if err != nil {
		return nil, err
	}
	return newIngester(config, b), nil
}

func newIngester(config *Config, b bucket.Bucket) *Ingester {
	return &Ingester{
		bucket:  b,
		config:  config,
		fetcher: fetch.New(&config.Fetch),
	}
}

// Run executes one ingestion pass: resolve the primary period, then
// walk the fallback plan until a period is skipped, ingested, or the
// plan is exhausted. The outcome is returned after its metrics have
// been emitted; the error is non-nil only for Failure outcomes.
func (i *Ingester) Run(ctx context.Context) (*Outcome, error) {
	if i.config.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.config.RunDeadline)
		defer cancel()
	}
	entry := log.WithFields(log.Fields{
		"bucket": i.config.BucketName(),
		"run":    uuid.NewString(),
	})

	primary := period.Resolve(time.Now(), i.config.MonthsBack)
	plan := period.FallbackPlan(primary, i.config.FallbackDepth)
	entry.WithField("period", primary).Infof("ingestion started; %d candidate periods", len(plan))

	outcome := i.walkPlan(ctx, entry, plan)
	if outcome.Kind == Failure && outcome.Period == (period.Period{}) {
		outcome.Period = primary
	}
	outcome.emit(entry)
	return outcome, outcome.Err
}

// walkPlan drives the per-period state machine.
func (i *Ingester) walkPlan(ctx context.Context, entry *log.Entry, plan []period.Period) *Outcome {
	attempts := make([]Attempt, 0, len(plan))
	for _, p := range plan {
		key := period.Key(i.config.Prefix, p, i.config.Source.FileFor(p))
		entry := entry.WithFields(log.Fields{"key": key, "period": p})

		exists, err := i.bucket.Stat(ctx, key)
		if err != nil {
			// The existence check guards idempotency; without it we
			// could double-ingest, so the run stops here.
			return &Outcome{
				Kind:     Failure,
				Period:   p,
				Attempts: append(attempts, Attempt{p, err}),
				Err:      errors.Wrapf(err, "checking %s", key),
			}
		}
		if exists {
			entry.Info("object already exists; skipping")
			return &Outcome{Kind: Skipped, Period: p, Key: key}
		}

		url := i.config.Source.URLFor(p)
		res, err := i.fetcher.Fetch(ctx, url)
		if err != nil {
			attempts = append(attempts, Attempt{p, err})
			if errors.Is(err, fetch.ErrNotFound) {
				entry.Info("source not yet published; trying previous period")
				continue
			}
			if fetch.Retryable(err) {
				entry.WithError(err).Warn("source unreachable after retries; trying previous period")
				continue
			}
			// A fatal fetch error will reproduce identically for
			// every period, so the whole run aborts.
			entry.WithError(err).Error("fatal download error")
			return &Outcome{Kind: Failure, Period: p, Attempts: attempts, Err: err}
		}

		uploadStart := time.Now()
		size := int64(len(res.Body))
		if err := i.bucket.Put(ctx, key, bytes.NewReader(res.Body), size); err != nil {
			// The failure is in the sink, not the source; earlier
			// periods would fail the same way.
			entry.WithError(err).Error("object store write failed")
			return &Outcome{
				Kind:     Failure,
				Period:   p,
				Attempts: append(attempts, Attempt{p, err}),
				Err:      errors.Wrapf(err, "writing %s", key),
			}
		}
		return &Outcome{
			Kind:     Success,
			Period:   p,
			Key:      key,
			Size:     size,
			Download: res.Elapsed,
			Upload:   time.Since(uploadStart),
			Attempts: attempts,
		}
	}
	last := attempts[len(attempts)-1]
	return &Outcome{
		Kind:     Failure,
		Attempts: attempts,
		Err:      errors.Wrapf(last.Err, "all %d candidate periods failed", len(attempts)),
	}
}

// emit records the terminal metric for the run and, on success, the
// performance metrics. It is called exactly once per run.
func (o *Outcome) emit(entry *log.Entry) {
	labels := metrics.PeriodValues(o.Period)
	switch o.Kind {
	case Success:
		jobSuccess.WithLabelValues(labels...).Inc()
		downloadDuration.WithLabelValues(labels...).Observe(o.Download.Seconds())
		uploadDuration.WithLabelValues(labels...).Observe(o.Upload.Seconds())
		fileSize.WithLabelValues(labels...).Set(float64(o.Size))
		mb := float64(o.Size) / (1 << 20)
		fileSizeMB.WithLabelValues(labels...).Set(mb)
		if secs := o.Download.Seconds(); secs > 0 {
			downloadThroughput.WithLabelValues(labels...).Set(mb / secs)
		}
		entry.WithFields(log.Fields{
			"bytes":    o.Size,
			"download": o.Download,
			"key":      o.Key,
			"period":   o.Period,
			"upload":   o.Upload,
		}).Info("ingestion succeeded")
	case Skipped:
		jobSkipped.WithLabelValues(labels...).Inc()
		entry.WithFields(log.Fields{
			"key":    o.Key,
			"period": o.Period,
		}).Info("ingestion skipped")
	case Failure:
		jobFailure.WithLabelValues(labels...).Inc()
		for _, a := range o.Attempts {
			entry.WithError(a.Err).WithField("period", a.Period).Error("period could not be ingested")
		}
		entry.WithError(o.Err).Error("ingestion failed")
	}
}
