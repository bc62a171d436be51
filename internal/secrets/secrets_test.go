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

package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := require.New(t)

	s, err := New("env://")
	r.NoError(err)
	r.IsType(&envStore{}, s)

	s, err = New("file:///var/run/secrets")
	r.NoError(err)
	r.IsType(&fileStore{}, s)
	r.Equal("/var/run/secrets", s.(*fileStore).dir)

	_, err = New("vault://example.com")
	r.ErrorContains(err, "unknown secret store scheme")

	_, err = New("file://")
	r.ErrorContains(err, "requires a directory path")
}

func TestEnvStore(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	t.Setenv("INGEST_TEST_SECRET", "hunter2")
	t.Setenv("INGEST_TEST_SECRET_JSON", `{"token": "from-json"}`)

	s := &envStore{}
	got, err := s.Get(ctx, "INGEST_TEST_SECRET")
	r.NoError(err)
	r.Equal("hunter2", got)

	got, err = s.Get(ctx, "INGEST_TEST_SECRET_JSON")
	r.NoError(err)
	r.Equal("from-json", got)

	_, err = s.Get(ctx, "INGEST_TEST_SECRET_MISSING")
	r.ErrorIs(err, ErrNotFound)
}

func TestFileStore(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	r.NoError(os.WriteFile(filepath.Join(dir, "token"), []byte("hunter2\n"), 0600))
	r.NoError(os.WriteFile(filepath.Join(dir, "wrapped"), []byte(`{"token": "from-json"}`), 0600))

	s := &fileStore{dir: dir}
	got, err := s.Get(ctx, "token")
	r.NoError(err)
	// Trailing whitespace from the file is stripped.
	r.Equal("hunter2", got)

	got, err = s.Get(ctx, "wrapped")
	r.NoError(err)
	r.Equal("from-json", got)

	_, err = s.Get(ctx, "missing")
	r.ErrorIs(err, ErrNotFound)
}

func TestDecode(t *testing.T) {
	tcs := []struct {
		name     string
		data     string
		expected string
	}{
		{"raw", "hunter2", "hunter2"},
		{"rawTrimmed", " hunter2\n", "hunter2"},
		{"json", `{"token": "abc"}`, "abc"},
		{"jsonExtraFields", `{"token": "abc", "expires": 12345}`, "abc"},
		// A JSON envelope without a token field is treated as a raw
		// value rather than silently yielding an empty credential.
		{"jsonNoToken", `{"other": "abc"}`, `{"other": "abc"}`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.expected, decode([]byte(tc.data)))
		})
	}
}
