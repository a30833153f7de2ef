package stats

// A factory whose metrics discard everything.
var NoOpStatsFactory StatsFactory = noopStatsFactory{}

type noopCounter struct{}

func (noopCounter) Inc() {}
func (noopCounter) Add(float64) {}

type noopGauge struct{}

func (noopGauge) Inc() {}
func (noopGauge) Add(float64) {}
func (noopGauge) Dec() {}
func (noopGauge) Sub(float64) {}
func (noopGauge) Set(float64) {}
func (noopGauge) Get() float64 { return 0 }

type noopSummary struct{}

func (noopSummary) Observe(float64) {}

type noopStatsFactory struct{}

func (noopStatsFactory) NewCounter(string, map[string]string) CounterStat {
	return noopCounter{}
}

func (noopStatsFactory) NewGauge(string, map[string]string) GaugeStat {
	return noopGauge{}
}

func (noopStatsFactory) NewSummary(string, map[string]string) SummaryStat {
	return noopSummary{}
}
