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

package local

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/dataset-ingest/internal/bucket/providers/storetest"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	r := require.New(t)
	b, err := New(&Config{Directory: t.TempDir()})
	r.NoError(err)
	suite := &storetest.Suite{Bucket: b}
	suite.All(t)
}

func TestNewRequiresDirectory(t *testing.T) {
	r := require.New(t)

	_, err := New(&Config{Directory: "/nonexistent/by/construction"})
	r.Error(err)

	dir := t.TempDir()
	b, err := New(&Config{Directory: dir})
	r.NoError(err)
	r.NoError(b.Put(context.Background(), "file.txt", strings.NewReader("x"), 1))

	_, err = New(&Config{Directory: dir + "/file.txt"})
	r.ErrorContains(err, "not a directory")
}
