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

// Package storetest defines the tests that the providers must pass.
package storetest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/dataset-ingest/internal/bucket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Suite verifies that a bucket.Bucket provider can store, stat, read
// and list objects.
type Suite struct {
	Bucket bucket.Bucket // The implementation under test.
}

// All runs every conformance check.
func (v *Suite) All(t *testing.T) {
	t.Run("open", v.Open)
	t.Run("stat", v.Stat)
	t.Run("overwrite", v.Overwrite)
	t.Run("walk", v.Walk)
	t.Run("walkSkipAll", v.WalkWithSkipAll)
}

// Open validates bucket.Bucket.Open.
func (v *Suite) Open(t *testing.T) {
	r := require.New(t)
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr error
	}{
		{"found", "open/test.txt", "test", nil},
		{"notfound", "open/nothere.txt", "", bucket.ErrNoSuchKey},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.NoError(v.store(ctx, "open/test.txt", "test"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assert.New(t)
			r := require.New(t)
			got, err := v.read(ctx, tt.file)
			if tt.wantErr != nil {
				a.ErrorIs(err, tt.wantErr)
				return
			}
			r.NoError(err)
			a.Equal(tt.want, got)
		})
	}
}

// Stat validates bucket.Bucket.Stat.
func (v *Suite) Stat(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.NoError(v.store(ctx, "stat/test.txt", "test"))

	ok, err := v.Bucket.Stat(ctx, "stat/test.txt")
	r.NoError(err)
	a.True(ok)

	ok, err = v.Bucket.Stat(ctx, "stat/nothere.txt")
	r.NoError(err)
	a.False(ok)
}

// Overwrite validates that Open reads the latest version of an object.
func (v *Suite) Overwrite(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.NoError(v.store(ctx, "overwrite/test.txt", "one"))
	r.NoError(v.store(ctx, "overwrite/test.txt", "two"))
	got, err := v.read(ctx, "overwrite/test.txt")
	r.NoError(err)
	a.Equal("two", got)
}

// Walk validates bucket.Bucket.Walk ordering and options.
func (v *Suite) Walk(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	files := []string{
		"walk/year=2025/month=04/a.parquet",
		"walk/year=2025/month=05/b.parquet",
		"walk/year=2025/month=06/c.parquet",
	}
	for _, f := range files {
		r.NoError(v.store(ctx, f, "x"))
	}
	var seen []string
	r.NoError(v.Bucket.Walk(ctx, "walk",
		&bucket.WalkOptions{Recursive: true, Limit: bucket.NoLimit},
		func(key string) error {
			seen = append(seen, key)
			return nil
		}))
	a.Equal(files, seen)

	// StartAfter skips earlier entries.
	seen = nil
	r.NoError(v.Bucket.Walk(ctx, "walk",
		&bucket.WalkOptions{Recursive: true, Limit: bucket.NoLimit, StartAfter: files[0]},
		func(key string) error {
			seen = append(seen, key)
			return nil
		}))
	a.Equal(files[1:], seen)
}

// WalkWithSkipAll validates bucket.ErrSkipAll handling.
func (v *Suite) WalkWithSkipAll(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range []string{"skip/a.txt", "skip/b.txt", "skip/c.txt"} {
		r.NoError(v.store(ctx, f, "x"))
	}
	count := 0
	r.NoError(v.Bucket.Walk(ctx, "skip",
		&bucket.WalkOptions{Recursive: true, Limit: bucket.NoLimit},
		func(string) error {
			count++
			return bucket.ErrSkipAll
		}))
	a.Equal(1, count)
}

func (v *Suite) store(ctx context.Context, name, content string) error {
	return v.Bucket.Put(ctx, name, strings.NewReader(content), int64(len(content)))
}

func (v *Suite) read(ctx context.Context, name string) (string, error) {
	buf, err := v.Bucket.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer buf.Close()
	data, err := io.ReadAll(buf)
	return string(data), err
}
