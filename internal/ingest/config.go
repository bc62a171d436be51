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
	"net/url"
	"os"
	"time"

	"github.com/cockroachdb/dataset-ingest/internal/bucket"
	"github.com/cockroachdb/dataset-ingest/internal/bucket/providers/local"
	"github.com/cockroachdb/dataset-ingest/internal/bucket/providers/s3"
	"github.com/cockroachdb/dataset-ingest/internal/fetch"
	"github.com/cockroachdb/dataset-ingest/internal/period"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	defaultFallbackDepth = 3
	defaultMonthsBack    = 1
	defaultRunDeadline   = 10 * time.Minute
)

// Provider identifies the type of storage provider.
type Provider int

const (
	// UnknownStorage identifies other storage not currently supported.
	UnknownStorage Provider = iota
	// LocalStorage identifies an object store backed by local storage.
	LocalStorage
	// S3Storage identifies an object store backed by AWS S3.
	S3Storage
)

// Providers maps a URL scheme to a Provider.
var Providers = map[string]Provider{
	"file": LocalStorage,
	"s3":   S3Storage,
}

// Config contains the configuration for one ingestion run. Values are
// bound to flags; the flag defaults may be supplied through the
// environment the process is hosted in.
type Config struct {
	Fetch  fetch.Config
	Source period.Source

	FallbackDepth int           // Number of earlier periods to try.
	MonthsBack    int           // Offset from now to the primary period.
	Prefix        string        // Key prefix inside the bucket.
	RunDeadline   time.Duration // Overall deadline for one run.
	StorageURL    string        // Location of the target bucket.

	// S3-specific settings. Credentials are only read from the
	// environment so they never appear in a process listing.
	S3Endpoint string
	S3Insecure bool

	// The following are computed.
	bucketName string
	localDir   string
	provider   Provider
}

// Bind adds flags to the set. It delegates to the embedded configs.
func (c *Config) Bind(f *pflag.FlagSet) {
	c.Fetch.Bind(f)

	f.StringVar(&c.Source.URLTemplate, "sourceURL",
		envOr("SOURCE_URL_TEMPLATE",
			"https://d37ci6vzurychx.cloudfront.net/trip-data/yellow_tripdata_{year}-{month}.parquet"),
		"template for the source download URL; {year} and {month} are substituted")
	f.StringVar(&c.Source.FileTemplate, "sourceFile",
		envOr("SOURCE_FILE_TEMPLATE", "yellow_tripdata_{year}-{month}.parquet"),
		"template for the stored file name; {year} and {month} are substituted")

	f.IntVar(&c.FallbackDepth, "fallbackDepth", defaultFallbackDepth,
		"number of consecutive earlier periods to try when the primary is unavailable")
	f.IntVar(&c.MonthsBack, "monthsBack", defaultMonthsBack,
		"how many calendar months before now to ingest")
	f.StringVar(&c.Prefix, "prefix", envOr("STORAGE_PREFIX", "raw"),
		"object key prefix for the partitioned layout")
	f.DurationVar(&c.RunDeadline, "runDeadline", defaultRunDeadline,
		"overall deadline for one ingestion run")
	f.StringVar(&c.StorageURL, "storageURL", envOr("STORAGE_URL", ""),
		"the URL of the target bucket, e.g. s3://my-bucket or file:///data")
	f.StringVar(&c.S3Endpoint, "s3Endpoint", envOr("S3_ENDPOINT", "s3.amazonaws.com"),
		"alternative S3 server to use, for other S3 providers")
	f.BoolVar(&c.S3Insecure, "s3Insecure", false,
		"connect to the S3 endpoint without TLS; for testing only")
}

// Preflight updates the configuration with sane defaults or returns an
// error if there are missing options for which a default cannot be
// provided.
func (c *Config) Preflight() error {
	if err := c.Fetch.Preflight(); err != nil {
		return err
	}
	if err := c.Source.Preflight(); err != nil {
		return err
	}
	if c.MonthsBack < 0 {
		return errors.Errorf("monthsBack must not be negative, got %d", c.MonthsBack)
	}
	if c.FallbackDepth < 1 {
		c.FallbackDepth = 1
	}
	if c.StorageURL == "" {
		return errors.New("no storageURL specified")
	}
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return errors.Wrapf(err, "invalid storageURL %q", c.StorageURL)
	}
	switch Providers[u.Scheme] {
	case LocalStorage:
		c.provider = LocalStorage
		c.localDir = u.Path
		c.bucketName = u.Path
	case S3Storage:
		c.provider = S3Storage
		if u.Host == "" {
			return errors.Errorf("storageURL %q is missing the bucket name", c.StorageURL)
		}
		c.bucketName = u.Host
	default:
		return errors.Errorf("unsupported storage scheme %q", u.Scheme)
	}
	return nil
}

// NewBucket opens the bucket named by the configuration.
func (c *Config) NewBucket() (bucket.Bucket, error) {
	switch c.provider {
	case LocalStorage:
		return local.New(&local.Config{Directory: c.localDir})
	case S3Storage:
		return s3.New(&s3.Config{
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Bucket:    c.bucketName,
			Endpoint:  c.S3Endpoint,
			Insecure:  c.S3Insecure,
		})
	}
	return nil, errors.New("config has not been preflighted")
}

// BucketName returns the display name of the target bucket.
func (c *Config) BucketName() string {
	return c.bucketName
}

// envOr returns the value of the environment variable, or the
// fallback if it is unset. Used to let the hosting environment supply
// flag defaults.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
