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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tcs := []struct {
		now        time.Time
		monthsBack int
		expected   Period
	}{
		{time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC), 1,
			Period{2025, time.May}},
		// Year rollover: one month before January is December of the
		// prior year.
		{time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), 1,
			Period{2024, time.December}},
		{time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC), 2,
			Period{2024, time.November}},
		{time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), 12,
			Period{2024, time.March}},
		// The day of month never influences the result; resolving from
		// March 31 must not land in a short month incorrectly.
		{time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), 1,
			Period{2025, time.February}},
		{time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC), 0,
			Period{2025, time.June}},
	}

	for idx, tc := range tcs {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.expected, Resolve(tc.now, tc.monthsBack))
		})
	}
}

func TestMinusNextRoundTrip(t *testing.T) {
	a := assert.New(t)
	p := Period{2025, time.January}
	for i := 0; i < 48; i++ {
		prev := p.Minus(i)
		a.Equal(p, prev.Minus(-i))
		for j := 0; j < i; j++ {
			prev = prev.Next()
		}
		a.Equal(p, prev)
	}
}

func TestStrings(t *testing.T) {
	a := assert.New(t)
	p := Period{2025, time.March}
	a.Equal("2025", p.YearString())
	a.Equal("03", p.MonthString())
	a.Equal("2025-03", p.String())

	// Zero-padding of small years.
	a.Equal("0099-12", Period{99, time.December}.String())
}

func TestFallbackPlan(t *testing.T) {
	a := assert.New(t)

	plan := FallbackPlan(Period{2025, time.February}, 3)
	a.Equal([]Period{
		{2025, time.February},
		{2025, time.January},
		{2024, time.December},
	}, plan)

	// A degenerate depth still yields the primary period.
	plan = FallbackPlan(Period{2025, time.June}, 0)
	a.Equal([]Period{{2025, time.June}}, plan)
}

func TestKeyRoundTrip(t *testing.T) {
	r := require.New(t)

	p := Period{2025, time.May}
	key := Key("raw", p, "yellow_tripdata_2025-05.parquet")
	r.Equal("raw/year=2025/month=05/yellow_tripdata_2025-05.parquet", key)

	parsed, file, ok := ParseKey(key)
	r.True(ok)
	r.Equal(p, parsed)
	r.Equal("yellow_tripdata_2025-05.parquet", file)

	// An empty prefix elides the leading separator.
	key = Key("", p, "data.parquet")
	r.Equal("year=2025/month=05/data.parquet", key)
	parsed, _, ok = ParseKey(key)
	r.True(ok)
	r.Equal(p, parsed)
}

func TestParseKeyRejects(t *testing.T) {
	tcs := []string{
		"",
		"raw/yellow_tripdata_2025-05.parquet",
		"raw/year=2025/month=5/data.parquet",  // unpadded month
		"raw/year=25/month=05/data.parquet",   // short year
		"raw/year=2025/month=13/data.parquet", // out of range
		"raw/year=2025/month=00/data.parquet",
		"raw/year=2025/month=05/",        // no file segment
		"raw/year=2025/month=05/a/b.pqt", // extra path depth
	}
	for _, tc := range tcs {
		t.Run(tc, func(t *testing.T) {
			a := assert.New(t)
			_, _, ok := ParseKey(tc)
			a.False(ok)
		})
	}
}

func TestKeyInPrefix(t *testing.T) {
	a := assert.New(t)
	a.True(KeyInPrefix("raw/year=2025/month=05/x.parquet", "raw"))
	a.True(KeyInPrefix("raw/year=2025/month=05/x.parquet", "raw/"))
	a.True(KeyInPrefix("anything", ""))
	a.False(KeyInPrefix("rawer/year=2025/month=05/x.parquet", "raw"))
	a.False(KeyInPrefix("other/year=2025/month=05/x.parquet", "raw"))
}

func TestSource(t *testing.T) {
	r := require.New(t)

	s := &Source{
		URLTemplate:  "https://example.com/trip-data/yellow_tripdata_{year}-{month}.parquet",
		FileTemplate: "yellow_tripdata_{year}-{month}.parquet",
	}
	r.NoError(s.Preflight())

	p := Period{2024, time.December}
	r.Equal("https://example.com/trip-data/yellow_tripdata_2024-12.parquet", s.URLFor(p))
	r.Equal("yellow_tripdata_2024-12.parquet", s.FileFor(p))
}

func TestSourcePreflight(t *testing.T) {
	tcs := []struct {
		s   Source
		err string
	}{
		{Source{}, "unset"},
		{Source{URLTemplate: "https://example.com/{year}-{month}"}, "unset"},
		{Source{
			URLTemplate:  "https://example.com/{year}-{month}",
			FileTemplate: "file_{year}.parquet",
		}, "must contain"},
		{Source{
			URLTemplate:  "https://example.com/static.parquet",
			FileTemplate: "file_{year}-{month}.parquet",
		}, "must contain"},
	}
	for idx, tc := range tcs {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			a := assert.New(t)
			err := tc.s.Preflight()
			if a.Error(err) {
				a.Contains(err.Error(), tc.err)
			}
		})
	}
}
