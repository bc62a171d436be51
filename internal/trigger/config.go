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
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/dataset-ingest/internal/util/stdserver"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	defaultJobTimeout = 30 * time.Second
	defaultWorkers    = runtime.GOMAXPROCS(0)
)

// Config contains the configuration for the processing trigger.
type Config struct {
	HTTP stdserver.Config

	FileContains string        // Substring the file name must contain; empty disables.
	FileSuffix   string        // Extension the file name must carry; empty disables.
	JobHost      string        // Base URL of the job API.
	JobID        int64         // Identifier of the job to run.
	JobTimeout   time.Duration // Deadline for one job API call.
	Prefix       string        // Only keys under this prefix are considered.
	SecretName   string        // Name of the credential in the secret store.
	SecretURL    string        // Location of the secret store.
	Workers      int           // Maximum records processed concurrently.
}

// Bind adds flags to the set. It delegates to the embedded
// Config.Bind.
func (c *Config) Bind(f *pflag.FlagSet) {
	c.HTTP.Bind(f)

	f.StringVar(&c.FileContains, "fileContains", envOr("DATASET_NAME", ""),
		"only trigger for file names containing this substring")
	f.StringVar(&c.FileSuffix, "fileSuffix", ".parquet",
		"only trigger for file names with this extension")
	f.StringVar(&c.JobHost, "jobHost", envOr("JOB_HOST", ""),
		"base URL of the batch-job API")
	f.Int64Var(&c.JobID, "jobID", 0,
		"identifier of the processing job to run")
	f.DurationVar(&c.JobTimeout, "jobTimeout", defaultJobTimeout,
		"deadline for one job API call")
	f.StringVar(&c.Prefix, "prefix", envOr("STORAGE_PREFIX", "raw"),
		"only trigger for object keys under this prefix")
	f.StringVar(&c.SecretName, "secretName", envOr("JOB_SECRET_NAME", ""),
		"name of the job API credential in the secret store")
	f.StringVar(&c.SecretURL, "secretStore", envOr("SECRET_STORE_URL", "env://"),
		"the URL of the secret store, e.g. env:// or file:///etc/secrets")
	f.IntVar(&c.Workers, "workers", defaultWorkers,
		"maximum number of event records to process concurrently")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if err := c.HTTP.Preflight(); err != nil {
		return err
	}
	if c.JobHost == "" {
		return errors.New("no jobHost specified")
	}
	if c.JobID == 0 {
		return errors.New("no jobID specified")
	}
	if c.SecretName == "" {
		return errors.New("no secretName specified")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return nil
}

// envOr returns the value of the environment variable, or the
// fallback if it is unset.
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
