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

// Package secrets retrieves credentials for external services.
// Secret values are fetched fresh on every call, never cached, and
// must never be logged.
package secrets

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel errors surfaced to callers.
var (
	// ErrNotFound is returned when the named secret does not exist.
	ErrNotFound = errors.New("secret not found")
	// ErrAccessDenied is returned when the secret exists but cannot
	// be read.
	ErrAccessDenied = errors.New("access to secret denied")
)

// Store provides access to named secrets.
type Store interface {
	// Get returns the token stored under the given name.
	Get(ctx context.Context, name string) (string, error)
}

// Providers maps a URL scheme to a Store constructor.
var Providers = map[string]func(*url.URL) (Store, error){
	"env":  func(*url.URL) (Store, error) { return &envStore{}, nil },
	"file": newFileStore,
}

// New constructs the Store identified by the URL. Supported forms are
// env:// (secrets resolved from process environment variables) and
// file:///path/to/dir (one file per secret).
func New(rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid secret store URL %q", rawURL)
	}
	provider, ok := Providers[u.Scheme]
	if !ok {
		return nil, errors.Errorf("unknown secret store scheme %q", u.Scheme)
	}
	return provider(u)
}

// envStore resolves secrets from the process environment.
type envStore struct{}

var _ Store = &envStore{}

// Get implements Store.
func (s *envStore) Get(_ context.Context, name string) (string, error) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", errors.Wrap(ErrNotFound, name)
	}
	return decode([]byte(value)), nil
}

// fileStore resolves secrets from files in a directory, one file per
// secret. This layout matches mounted Kubernetes secret volumes.
type fileStore struct {
	dir string
}

var _ Store = &fileStore{}

func newFileStore(u *url.URL) (Store, error) {
	dir := u.Path
	if u.Host != "" {
		dir = filepath.Join(u.Host, u.Path)
	}
	if dir == "" {
		return nil, errors.New("file secret store requires a directory path")
	}
	return &fileStore{dir: dir}, nil
}

// Get implements Store.
func (s *fileStore) Get(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Clean(name)))
	switch {
	case os.IsNotExist(err):
		return "", errors.Wrap(ErrNotFound, name)
	case os.IsPermission(err):
		return "", errors.Wrap(ErrAccessDenied, name)
	case err != nil:
		return "", errors.Wrapf(err, "reading secret %s", name)
	}
	return decode(data), nil
}

// decode accepts either a raw token or a JSON document of the form
// {"token": "..."}. Some secret managers store the token inside a
// JSON envelope.
func decode(data []byte) string {
	var envelope struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Token != "" {
		return envelope.Token
	}
	return strings.TrimSpace(string(data))
}
