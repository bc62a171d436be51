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

// Package local provides access to local storage. It is primarily
// used for testing and for development without an S3 endpoint.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/dataset-ingest/internal/bucket"
	"github.com/pkg/errors"
)

// Config specifies the parameters required to create a local bucket.
type Config struct {
	Directory string // Root directory
}

// New creates a bucket backed by a local filesystem.
func New(config *Config) (bucket.Bucket, error) {
	info, err := os.Stat(config.Directory)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", config.Directory)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", config.Directory)
	}
	return &localBucket{root: config.Directory}, nil
}

// localBucket is a bucket backed by a filesystem.
type localBucket struct {
	root string
}

var _ bucket.Bucket = &localBucket{}

// Open implements bucket.Bucket.
func (b *localBucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(b.resolve(name))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(bucket.ErrNoSuchKey, name)
	}
	return f, err
}

// Put implements bucket.Bucket. The content is staged in a temporary
// file and renamed into place, so a failed write never leaves a
// partial object visible at the key.
func (b *localBucket) Put(ctx context.Context, name string, content io.Reader, length int64) error {
	target := b.resolve(name)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, "mkdir for %s", name)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return errors.Wrapf(err, "staging %s", name)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), target), "committing %s", name)
}

// Stat implements bucket.Bucket.
func (b *localBucket) Stat(ctx context.Context, name string) (bool, error) {
	info, err := os.Stat(b.resolve(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, name)
	}
	return !info.IsDir(), nil
}

// Walk implements bucket.Bucket.
func (b *localBucket) Walk(
	ctx context.Context, prefix string, options *bucket.WalkOptions, f func(string) error,
) error {
	count := 0
	err := b.walk(ctx, filepath.Clean(prefix), f, &count, options)
	if errors.Is(err, bucket.ErrSkipAll) {
		return nil
	}
	return err
}

// resolve maps an object key to a path under the root directory.
func (b *localBucket) resolve(name string) string {
	return filepath.Join(b.root, filepath.Clean(name))
}

// walk recursively scans the entries in the filesystem, calling the f
// function for each file that matches the walk options. Entries are
// visited in lexicographic order, matching the S3 provider.
func (b *localBucket) walk(
	ctx context.Context, dir string, f func(string) error, count *int, options *bucket.WalkOptions,
) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if options.Limit > 0 && *count >= options.Limit {
		return nil
	}
	info, err := os.Stat(filepath.Join(b.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil
	}
	files, err := os.ReadDir(filepath.Join(b.root, dir))
	if err != nil {
		return err
	}
	for _, file := range files {
		if options.Limit > 0 && *count >= options.Limit {
			break
		}
		name := filepath.Join(dir, file.Name())
		if file.IsDir() {
			if options.Recursive {
				if err := b.walk(ctx, name, f, count, options); err != nil {
					return err
				}
			}
			continue
		}
		if skipTemp(file) {
			continue
		}
		if options.StartAfter != "" && strings.Compare(name, options.StartAfter) <= 0 {
			continue
		}
		if err := f(filepath.ToSlash(name)); err != nil {
			return err
		}
		*count++
	}
	return nil
}

// skipTemp hides the staging files used by Put.
func skipTemp(file fs.DirEntry) bool {
	return strings.HasPrefix(file.Name(), ".put-")
}
