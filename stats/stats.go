// Package stats defines the metric sinks the pools report to.  Pools only
// depend on StatsFactory; wiring a real metrics backend means implementing
// it.
package stats

import (
	"sort"
	"strings"
)

type CounterStat interface {
	Inc()
	Add(float64)
}

type GaugeStat interface {
	Set(float64)
	Get() float64

	Inc()
	Add(float64)

	Dec()
	Sub(float64)
}

type SummaryStat interface {
	Observe(float64)
}

type StatsFactory interface {
	NewCounter(
		metric string,
		tags map[string]string) CounterStat

	NewGauge(
		metric string,
		tags map[string]string) GaugeStat

	NewSummary(
		metric string,
		tags map[string]string) SummaryStat
}

// Returns a stable identifier for a metric and its tags, e.g.
// "pool.reservations{pool=bounded}".
func MetricKey(metric string, tags map[string]string) string {
	if len(tags) == 0 {
		return metric
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return metric + "{" + strings.Join(parts, ",") + "}"
}
