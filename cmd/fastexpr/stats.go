package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/zephyrtronium/fastexpr/cache"
)

// printStats writes totals of the collected metrics and the program cache.
func printStats(ctx context.Context, w io.Writer, reader *sdkmetric.ManualReader, programs *cache.Cache) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		fmt.Fprintln(w, "collecting metrics:", err)
		return
	}
	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				var n int64
				for _, dp := range d.DataPoints {
					n += dp.Value
				}
				lines = append(lines, fmt.Sprintf("%s\t%d", m.Name, n))
			case metricdata.Histogram[float64]:
				var n uint64
				var sum float64
				for _, dp := range d.DataPoints {
					n += dp.Count
					sum += dp.Sum
				}
				mean := 0.0
				if n != 0 {
					mean = sum / float64(n)
				}
				lines = append(lines, fmt.Sprintf("%s\tcount=%d mean=%.3f", m.Name, n, mean))
			}
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	hits, misses := programs.Stats()
	fmt.Fprintf(w, "cache\tprograms=%d hits=%d misses=%d\n", programs.Len(), hits, misses)
}
