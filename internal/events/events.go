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

// Package events decodes storage-creation notifications. Only the
// store identifier and the object key are consumed; all other event
// fields are ignored.
package events

import (
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"
)

// An Object identifies a newly-created object in a store.
type Object struct {
	Bucket string
	Key    string
}

// s3Notification is the S3-compatible bucket notification format, as
// delivered by AWS S3 and by minio.
type s3Notification struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// bridgeNotification is the EventBridge object-created format.
type bridgeNotification struct {
	Detail struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"detail"`
}

// Parse decodes a notification payload in either the S3 Records
// format or the EventBridge detail format. A payload may carry more
// than one record; each is returned separately.
func Parse(data []byte) ([]Object, error) {
	var s3 s3Notification
	if err := json.Unmarshal(data, &s3); err == nil && len(s3.Records) > 0 {
		ret := make([]Object, 0, len(s3.Records))
		for _, rec := range s3.Records {
			if rec.S3.Bucket.Name == "" || rec.S3.Object.Key == "" {
				return nil, errors.New("record missing bucket or key")
			}
			// Object keys are URL-encoded in the Records format.
			key, err := url.QueryUnescape(rec.S3.Object.Key)
			if err != nil {
				return nil, errors.Wrapf(err, "undecodable key %q", rec.S3.Object.Key)
			}
			ret = append(ret, Object{Bucket: rec.S3.Bucket.Name, Key: key})
		}
		return ret, nil
	}

	var bridge bridgeNotification
	if err := json.Unmarshal(data, &bridge); err != nil {
		return nil, errors.Wrap(err, "undecodable event payload")
	}
	if bridge.Detail.Bucket.Name == "" || bridge.Detail.Object.Key == "" {
		return nil, errors.New("event missing bucket or key")
	}
	return []Object{{
		Bucket: bridge.Detail.Bucket.Name,
		Key:    bridge.Detail.Object.Key,
	}}, nil
}
