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

// Package s3 provides access to an AWS S3 bucket, or to any other
// provider that speaks the S3 wire protocol.
package s3

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/dataset-ingest/internal/bucket"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DirDelim is the directory delimiter used in S3.
const DirDelim = "/"

// Config has the parameters used to connect to S3.
type Config struct {
	AccessKey string // AWS Access Key
	Bucket    string // The name of the bucket.
	Endpoint  string // Alternative server to use, for other S3 providers.
	Insecure  bool   // For testing against self hosted S3 providers.
	SecretKey string // Secret associated to the Access Key
}

// s3Access defines the functions we are using to interact with the
// minio SDK. Mainly used for testing to implement a mock component.
type s3Access interface {
	// GetObject returns the content of the named object.
	GetObject(ctx context.Context, bucketName string, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	// PutObject uploads the content of the named object.
	PutObject(ctx context.Context, bucketName string, objectName string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	// StatObject fetches the metadata of the named object.
	StatObject(ctx context.Context, bucketName string, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	// ListObjects scans the entries in the bucket.
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// New returns a bucket backed by a S3 provider.
func New(config *Config) (bucket.Bucket, error) {
	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	return &s3Bucket{
		client: &client{ref: minioClient},
		bucket: config.Bucket,
	}, nil
}

type s3Bucket struct {
	client s3Access
	bucket string
}

var _ bucket.Bucket = &s3Bucket{}

// Open implements bucket.Bucket.
func (b *s3Bucket) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	name = strings.TrimPrefix(name, b.bucket+DirDelim)
	// The minio client defers errors until the first read, so probe
	// the object's existence up front.
	if _, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{}); err != nil {
		return nil, classify(err, name)
	}
	r, err := b.client.GetObject(ctx, b.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(err, name)
	}
	return r, nil
}

// Put implements bucket.Bucket. The S3 protocol guarantees that an
// object only becomes visible once the upload has completed, which
// provides the atomicity the callers rely on.
func (b *s3Bucket) Put(ctx context.Context, name string, content io.Reader, length int64) error {
	name = strings.TrimPrefix(name, b.bucket+DirDelim)
	_, err := b.client.PutObject(ctx, b.bucket, name, content, length, minio.PutObjectOptions{})
	return classify(err, name)
}

// Stat implements bucket.Bucket.
func (b *s3Bucket) Stat(ctx context.Context, name string) (bool, error) {
	name = strings.TrimPrefix(name, b.bucket+DirDelim)
	_, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if err := classify(err, name); !errors.Is(err, bucket.ErrNoSuchKey) {
		return false, err
	}
	return false, nil
}

// Walk implements bucket.Bucket.
func (b *s3Bucket) Walk(
	ctx context.Context, prefix string, options *bucket.WalkOptions, f func(string) error,
) error {
	// Ensure the object name actually ends with a dir suffix.
	// Otherwise we'll just iterate the object itself as one prefix
	// item.
	if prefix != "" {
		prefix = strings.TrimSuffix(prefix, DirDelim) + DirDelim
	}
	after := strings.TrimPrefix(options.StartAfter, b.bucket+DirDelim)
	opts := minio.ListObjectsOptions{
		Prefix:     prefix,
		MaxKeys:    options.Limit,
		Recursive:  options.Recursive,
		StartAfter: after,
		UseV1:      false,
	}
	log.Tracef("Walk: bucket %q, after %q", b.bucket, after)
	for object := range b.client.ListObjects(ctx, b.bucket, opts) {
		if object.Err != nil {
			return classify(object.Err, object.Key)
		}
		if object.Key == "" || object.Key == prefix {
			continue
		}
		if err := f(object.Key); err != nil {
			if errors.Is(err, bucket.ErrSkipAll) {
				return nil
			}
			return err
		}
	}
	return ctx.Err()
}

// classify translates a minio error into the taxonomy defined by the
// bucket package, preserving the original error as the cause.
func classify(err error, name string) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(bucket.ErrNoSuchKey, "%s: %v", name, err)
	case resp.StatusCode >= 500,
		resp.Code == "SlowDown",
		resp.Code == "RequestTimeout",
		resp.StatusCode == 0: // network-level failure, no server response
		return errors.Wrapf(bucket.ErrTransient, "%s: %v", name, err)
	}
	return err
}
