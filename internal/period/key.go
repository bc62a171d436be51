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

package period

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// keyPattern matches the partition segments of an object key. The
// partition fields are always zero-padded: four digits for the year,
// two for the month.
var keyPattern = regexp.MustCompile(`(^|/)year=(\d{4})/month=(\d{2})/([^/]+)$`)

// Key builds the object key for a period following the fixed
// partitioning scheme:
//
//	<prefix>/year=<YYYY>/month=<MM>/<fileName>
//
// The key is the sole identity used for existence checks; no separate
// manifest is maintained.
func Key(prefix string, p Period, fileName string) string {
	return path.Join(prefix,
		"year="+p.YearString(),
		"month="+p.MonthString(),
		fileName)
}

// ParseKey extracts the period and file name from an object key laid
// out by Key. The boolean result reports whether the key matches the
// partitioning scheme at all; keys for unrelated objects are expected
// and are not an error.
func ParseKey(key string) (Period, string, bool) {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return Period{}, "", false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return Period{}, "", false
	}
	month, err := strconv.Atoi(m[3])
	if err != nil || month < 1 || month > 12 {
		return Period{}, "", false
	}
	return Period{Year: year, Month: time.Month(month)}, m[4], true
}

// KeyInPrefix reports whether the key is under the given prefix. An
// empty prefix matches any key.
func KeyInPrefix(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(key, strings.TrimSuffix(prefix, "/")+"/")
}
