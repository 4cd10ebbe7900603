// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embed

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("nvimrpc.embed")

// Metrics for the embedded editor process.
var (
	spawnTotal  metric.Int64Counter
	runningProc metric.Int64UpDownCounter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		spawnTotal, err = meter.Int64Counter(
			"nvim_embed_spawns_total",
			metric.WithDescription("Total number of embedded editor spawns"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runningProc, err = meter.Int64UpDownCounter(
			"nvim_embed_running",
			metric.WithDescription("Number of embedded editor processes running"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordSpawn records a spawn attempt.
func recordSpawn(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	spawnTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success {
		runningProc.Add(ctx, 1)
	}
}

// recordExit records a process exit.
func recordExit(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	runningProc.Add(ctx, -1)
}
