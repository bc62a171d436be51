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

// Package trigger contains the command to run the processing-trigger
// webhook server.
package trigger

import (
	"github.com/cockroachdb/dataset-ingest/internal/trigger"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/spf13/cobra"
)

// Command returns the command to run the processing trigger.
func Command() *cobra.Command {
	var cfg trigger.Config
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Short: "receive storage events and launch processing jobs",
		Use:   "trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Preflight(); err != nil {
				return err
			}
			stop := stopper.WithContext(cmd.Context())
			if _, err := trigger.Start(stop, &cfg); err != nil {
				return err
			}
			return stop.Wait()
		},
	}
	cfg.Bind(cmd.Flags())
	return cmd
}
