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
	"strings"

	"github.com/pkg/errors"
)

// Placeholders substituted by Source templates.
const (
	yearToken  = "{year}"
	monthToken = "{month}"
)

// A Source describes where a period's file is published and how the
// file is named. The templates substitute {year} with the four-digit
// year and {month} with the zero-padded month.
type Source struct {
	URLTemplate  string
	FileTemplate string
}

// Preflight validates the templates.
func (s *Source) Preflight() error {
	for _, tmpl := range []string{s.URLTemplate, s.FileTemplate} {
		if tmpl == "" {
			return errors.New("source template unset")
		}
		if !strings.Contains(tmpl, yearToken) || !strings.Contains(tmpl, monthToken) {
			return errors.Errorf(
				"source template %q must contain both %s and %s", tmpl, yearToken, monthToken)
		}
	}
	return nil
}

// URLFor returns the concrete download URL for the given period.
func (s *Source) URLFor(p Period) string {
	return expand(s.URLTemplate, p)
}

// FileFor returns the concrete file name for the given period.
func (s *Source) FileFor(p Period) string {
	return expand(s.FileTemplate, p)
}

func expand(tmpl string, p Period) string {
	out := strings.ReplaceAll(tmpl, yearToken, p.YearString())
	return strings.ReplaceAll(out, monthToken, p.MonthString())
}
