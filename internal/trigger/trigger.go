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

// Package trigger reacts to storage-creation events by starting the
// downstream processing job. Event delivery is at-least-once: the
// handler is idempotent-safe rather than deduplicating, since the
// downstream job performs a full-partition overwrite.
package trigger

import (
	"context"
	"strings"

	"github.com/cockroachdb/dataset-ingest/internal/events"
	"github.com/cockroachdb/dataset-ingest/internal/jobs"
	"github.com/cockroachdb/dataset-ingest/internal/period"
	"github.com/cockroachdb/dataset-ingest/internal/secrets"
	"github.com/cockroachdb/dataset-ingest/internal/util/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrCredential is returned when the job credential cannot be
// retrieved. It is fatal for the invocation; the event source's
// redelivery policy decides whether to try again.
var ErrCredential = errors.New("credential unavailable")

// Kind classifies the terminal state of one event.
type Kind int

const (
	// SkippedEvent indicates the object key did not match the dataset
	// naming convention. This is a deliberate filter, not an error.
	SkippedEvent Kind = iota
	// Invoked indicates a job run was started.
	Invoked
)

// A Result is the terminal report for one storage event.
type Result struct {
	Kind    Kind
	Request *jobs.RunRequest // The invocation sent; nil when skipped.
	RunID   int64            // Assigned by the job API.
}

// A Trigger processes storage-creation events. It holds no state
// across events; concurrent invocations are independent.
type Trigger struct {
	client *jobs.Client
	config *Config
	store  secrets.Store
}

// New constructs a Trigger. The configuration must have been
// preflighted.
func New(config *Config) (*Trigger, error) {
	store, err := secrets.New(config.SecretURL)
	if err != nil {
		return nil, err
	}
	return &Trigger{
		client: jobs.NewClient(config.JobHost, config.JobTimeout),
		config: config,
		store:  store,
	}, nil
}

// Handle processes a single storage event: parse the key, fetch the
// credential, invoke the job. Duplicate deliveries of the same event
// produce identical run requests; the job API is called again and the
// duplicate run is accepted. Exactly one metric is emitted per event.
func (t *Trigger) Handle(ctx context.Context, ev events.Object) (*Result, error) {
	entry := log.WithFields(log.Fields{"bucket": ev.Bucket, "key": ev.Key})

	p, ok := t.match(ev.Key)
	if !ok {
		triggerSkipped.Inc()
		entry.Debug("object does not match the dataset naming convention; skipping")
		return &Result{Kind: SkippedEvent}, nil
	}

	// The credential is fetched fresh for every invocation and is
	// never cached or logged.
	token, err := t.store.Get(ctx, t.config.SecretName)
	if err != nil {
		triggerFailure.WithLabelValues("credential").Inc()
		err = errors.Wrapf(ErrCredential, "secret %s: %v", t.config.SecretName, err)
		entry.WithError(err).Error("could not retrieve job credential")
		return nil, err
	}

	run := jobs.NewRunRequest(t.config.JobID, ev.Bucket, ev.Key, p)
	runID, err := t.client.RunNow(ctx, token, run)
	if err != nil {
		triggerFailure.WithLabelValues("invoke").Inc()
		entry.WithError(err).Error("job invocation failed")
		return nil, err
	}

	triggerInvoked.WithLabelValues(metrics.PeriodValues(p)...).Inc()
	entry.WithFields(log.Fields{
		"period": p,
		"runID":  runID,
	}).Info("processing job triggered")
	return &Result{Kind: Invoked, Request: run, RunID: runID}, nil
}

// match applies the dataset naming convention to the object key. The
// trigger must not invoke a job for every object creation, only for
// keys carrying the partition layout and the configured file naming.
func (t *Trigger) match(key string) (period.Period, bool) {
	if !period.KeyInPrefix(key, t.config.Prefix) {
		return period.Period{}, false
	}
	p, file, ok := period.ParseKey(key)
	if !ok {
		return period.Period{}, false
	}
	if t.config.FileSuffix != "" && !strings.HasSuffix(file, t.config.FileSuffix) {
		return period.Period{}, false
	}
	if t.config.FileContains != "" && !strings.Contains(file, t.config.FileContains) {
		return period.Period{}, false
	}
	return p, true
}
