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
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	defaultAttempts       = 5
	defaultAttemptTimeout = 30 * time.Second
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultMaxRetryTime   = 5 * time.Minute
	defaultRetryableCodes = []int{
		429, // Too Many Requests
	}
)

// Config contains the user-visible configuration for the fetcher.
type Config struct {
	Attempts       int           // Maximum number of HTTP calls per URL.
	AttemptTimeout time.Duration // Deadline for a single HTTP call.
	InitialBackoff time.Duration // Delay before the first retry.
	MaxBackoff     time.Duration // Cap on the delay between retries.
	MaxRetryTime   time.Duration // Ceiling on total time spent retrying.
	RetryableCodes []int         // Extra HTTP statuses treated as transient.
}

// Bind adds flags to the set.
func (c *Config) Bind(f *pflag.FlagSet) {
	f.IntVar(&c.Attempts, "fetchAttempts", defaultAttempts,
		"maximum number of download attempts per URL")
	f.DurationVar(&c.AttemptTimeout, "fetchTimeout", defaultAttemptTimeout,
		"deadline for a single download attempt")
	f.DurationVar(&c.InitialBackoff, "fetchRetryInitial", defaultInitialBackoff,
		"initial time to wait before retrying a failed download")
	f.DurationVar(&c.MaxBackoff, "fetchRetryMaxInterval", defaultMaxBackoff,
		"maximum time to wait between download retries")
	f.DurationVar(&c.MaxRetryTime, "fetchRetryMax", defaultMaxRetryTime,
		"maximum total time allowed for retrying one URL")
	f.IntSliceVar(&c.RetryableCodes, "fetchRetryableCodes", defaultRetryableCodes,
		"additional HTTP status codes to retry")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.Attempts < 1 {
		return errors.Errorf("fetchAttempts must be at least 1, got %d", c.Attempts)
	}
	if c.AttemptTimeout <= 0 {
		return errors.New("fetchTimeout must be positive")
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		return errors.Errorf("fetchRetryMaxInterval (%s) must be at least fetchRetryInitial (%s)",
			c.MaxBackoff, c.InitialBackoff)
	}
	return nil
}

// retryable reports whether the status code is configured as
// transient.
func (c *Config) retryable(status int) bool {
	return slices.Contains(c.RetryableCodes, status)
}
