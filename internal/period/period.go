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

// Package period computes the (year, month) unit of ingestion and the
// object-store paths derived from it.
package period

import (
	"fmt"
	"time"
)

// A Period identifies one monthly dataset unit.
type Period struct {
	Year  int
	Month time.Month
}

// Resolve computes the calendar month monthsBack months prior to now.
// Month arithmetic is exact; resolving one month back from January
// yields December of the previous year, regardless of the day of month
// that now falls on.
func Resolve(now time.Time, monthsBack int) Period {
	y, m, _ := now.Date()
	return Period{Year: y, Month: m}.Minus(monthsBack)
}

// Minus steps the period backward by the given number of calendar
// months, handling year rollover.
func (p Period) Minus(months int) Period {
	// Work in zero-based month ordinals so the integer division
	// carries into the year correctly.
	ord := p.Year*12 + int(p.Month) - 1 - months
	return Period{
		Year:  ord / 12,
		Month: time.Month(ord%12 + 1),
	}
}

// Next returns the period one calendar month later.
func (p Period) Next() Period {
	return p.Minus(-1)
}

// YearString returns the four-digit year.
func (p Period) YearString() string {
	return fmt.Sprintf("%04d", p.Year)
}

// MonthString returns the zero-padded, two-digit month.
func (p Period) MonthString() string {
	return fmt.Sprintf("%02d", int(p.Month))
}

// String implements fmt.Stringer.
func (p Period) String() string {
	return p.YearString() + "-" + p.MonthString()
}

// FallbackPlan returns the ordered sequence of periods to attempt,
// starting at primary and stepping one calendar month backward per
// element. The returned slice always has length maxDepth and is never
// regenerated mid-run.
func FallbackPlan(primary Period, maxDepth int) []Period {
	if maxDepth < 1 {
		maxDepth = 1
	}
	plan := make([]Period, maxDepth)
	for i := range plan {
		plan[i] = primary.Minus(i)
	}
	return plan
}
