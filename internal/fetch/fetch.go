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

// Package fetch downloads source files over HTTP with bounded,
// backoff-driven retries.
package fetch

import (
	"context"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Failure taxonomy. The ingest loop decides whether a failure advances
// to a fallback period or aborts the run; this package only classifies.
var (
	// ErrNotFound indicates the source returned a 404: the period has
	// not been published yet. It is terminal for the URL and is never
	// retried.
	ErrNotFound = errors.New("source data not found")
	// ErrTimeout indicates an attempt exceeded its deadline. Retried.
	ErrTimeout = errors.New("fetch timed out")
	// ErrTransient indicates a 5xx, a connection failure, or a short
	// read against the declared content length. Retried.
	ErrTransient = errors.New("transient fetch error")
)

// Retryable reports whether the fetch error may succeed if the same
// URL is requested again. Anything else is either NotFound or fatal.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// A Fetcher performs GET requests against source URLs. It is safe for
// concurrent use.
type Fetcher struct {
	client *http.Client
	config *Config
}

// New constructs a Fetcher. The per-attempt timeout is enforced by the
// underlying client.
func New(config *Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: config.AttemptTimeout},
		config: config,
	}
}

// Result describes a completed download.
type Result struct {
	Body     []byte        // The full payload.
	Attempts int           // Number of HTTP calls made.
	Elapsed  time.Duration // Total wall-clock time, including backoff.
}

// Fetch downloads the full payload at the given URL. Transient
// failures and timeouts are retried with exponential backoff and
// jitter until the configured attempt budget or elapsed-time ceiling
// is exhausted; the last classified error is then returned. A 404 or a
// fatal status aborts immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	res := &Result{}
	operation := func() error {
		res.Attempts++
		body, err := f.attempt(ctx, url, res.Attempts)
		if err == nil {
			res.Body = body
			return nil
		}
		if Retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	// The metric is labeled by host to keep the cardinality bounded;
	// the full URL stays in the log line.
	host := hostOf(url)
	notify := func(err error, delay time.Duration) {
		retryCount.WithLabelValues(host).Inc()
		log.WithError(err).Warnf("fetch %s failed; retrying in %s", url, delay)
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = f.config.InitialBackoff
	expBackoff.MaxInterval = f.config.MaxBackoff
	expBackoff.MaxElapsedTime = f.config.MaxRetryTime
	policy := backoff.WithContext(
		backoff.WithMaxRetries(expBackoff, uint64(f.config.Attempts-1)), ctx)
	err := backoff.RetryNotify(operation, policy, notify)
	res.Elapsed = time.Since(start)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// attempt performs a single HTTP call and classifies its outcome.
func (f *Fetcher) attempt(ctx context.Context, url string, attempt int) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		// A malformed request will fail identically on every attempt.
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		attemptDuration.WithLabelValues(outcomeFailure).Observe(time.Since(start).Seconds())
		return nil, classifyNetErr(err, url)
	}
	defer resp.Body.Close()

	if status := resp.StatusCode; status < 200 || status > 299 {
		attemptDuration.WithLabelValues(outcomeFailure).Observe(time.Since(start).Seconds())
		switch {
		case status == http.StatusNotFound:
			return nil, errors.Wrap(ErrNotFound, url)
		case status >= 500, f.config.retryable(status):
			return nil, errors.Wrapf(ErrTransient, "%s: status %d", url, status)
		default:
			return nil, errors.Errorf("%s: unexpected status %d", url, status)
		}
	}

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		attemptDuration.WithLabelValues(outcomeFailure).Observe(elapsed.Seconds())
		return nil, classifyNetErr(err, url)
	}
	// A short read against the declared length must never be accepted
	// as a complete file.
	if declared := resp.ContentLength; declared >= 0 && declared != int64(len(body)) {
		attemptDuration.WithLabelValues(outcomeFailure).Observe(elapsed.Seconds())
		return nil, errors.Wrapf(ErrTransient,
			"%s: partial transfer: declared %d bytes, received %d", url, declared, len(body))
	}
	attemptDuration.WithLabelValues(outcomeSuccess).Observe(elapsed.Seconds())
	log.WithFields(log.Fields{
		"attempt": attempt,
		"bytes":   len(body),
		"elapsed": elapsed,
		"url":     url,
	}).Debug("fetch attempt succeeded")
	return body, nil
}

// hostOf extracts the host portion of a URL for metric labels.
func hostOf(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// classifyNetErr folds transport-level failures into the taxonomy.
func classifyNetErr(err error, url string) error {
	if t, ok := errors.Cause(err).(interface{ Timeout() bool }); ok && t.Timeout() {
		return errors.Wrap(ErrTimeout, url)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(ErrTimeout, url)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return errors.Wrapf(ErrTransient, "%s: %v", url, err)
}
