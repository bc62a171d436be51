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

// Package bucket defines the interface that the providers must
// implement to access object storage.
package bucket

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// NoLimit instructs Walk to visit every entry under the prefix.
const NoLimit = 0

// Sentinel errors returned by providers. Callers classify failures
// with errors.Is; providers wrap the underlying driver error so the
// cause is preserved in logs.
var (
	// ErrNoSuchKey is returned by Open or Stat when the named object
	// does not exist.
	ErrNoSuchKey = errors.New("no such key")
	// ErrTransient marks a failure that may succeed if retried, such
	// as a connection reset or a throttled request.
	ErrTransient = errors.New("transient storage error")
	// ErrSkipAll may be returned by a Walk callback to stop the walk
	// without error.
	ErrSkipAll = errors.New("skip everything and stop the walk")
)

// WalkOptions are the configuration options used by Walk.
type WalkOptions struct {
	Limit      int    // Maximum number of entries to visit; NoLimit for all.
	Recursive  bool   // Enable recursive descent.
	StartAfter string // Only visit entries lexically after this key.
}

// Bucket provides access to a single object-storage bucket. Entries
// are visited in lexicographic key order.
type Bucket interface {
	// Open returns a reader for the named object. It returns
	// ErrNoSuchKey if the object does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Put atomically stores the content under the named key. A failed
	// Put must not leave a partially-written object visible at the
	// key.
	Put(ctx context.Context, name string, content io.Reader, length int64) error

	// Stat reports whether the named object exists.
	Stat(ctx context.Context, name string) (bool, error)

	// Walk calls f for each entry under the given prefix. The
	// argument to f is the full object key.
	Walk(ctx context.Context, prefix string, options *WalkOptions, f func(string) error) error
}
