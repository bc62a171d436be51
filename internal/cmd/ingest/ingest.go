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

// Package ingest contains the command to run the ingestion
// orchestrator, either once or on a cron schedule.
package ingest

import (
	"net/http"

	"github.com/cockroachdb/dataset-ingest/internal/ingest"
	"github.com/cockroachdb/dataset-ingest/internal/util/stdserver"
	"github.com/cockroachdb/field-eng-powertools/stopper"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Command returns the command to run the ingestion orchestrator.
func Command() *cobra.Command {
	var cfg ingest.Config
	var httpCfg stdserver.Config
	var schedule string
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		Short: "download the current period's dataset file into object storage",
		Use:   "ingest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Preflight(); err != nil {
				return err
			}
			ing, err := ingest.New(&cfg)
			if err != nil {
				return err
			}
			if schedule == "" {
				// One-shot mode: the exit code reports the outcome to
				// the invoking scheduler.
				_, err := ing.Run(cmd.Context())
				return err
			}

			// Resident mode: run on the cron schedule and serve the
			// metrics endpoint until shut down.
			if err := httpCfg.Preflight(); err != nil {
				return err
			}
			stop := stopper.WithContext(cmd.Context())
			l, err := stdserver.Listener(stop, &httpCfg)
			if err != nil {
				return err
			}
			stdserver.New(stop, l, stdserver.Mux(http.NotFoundHandler()))

			sched := cron.New()
			if _, err := sched.AddFunc(schedule, func() {
				// Failures are reported through metrics and logs; the
				// next scheduled run retries safely.
				_, _ = ing.Run(stop)
			}); err != nil {
				return err
			}
			log.WithField("schedule", schedule).Info("running on a schedule")
			sched.Start()
			stop.Defer(func() { <-sched.Stop().Done() })
			return stop.Wait()
		},
	}
	f := cmd.Flags()
	cfg.Bind(f)
	httpCfg.Bind(f)
	f.StringVar(&schedule, "schedule", "",
		"cron expression; when set, stay resident and ingest on this schedule")
	return cmd
}
