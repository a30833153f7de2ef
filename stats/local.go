package stats

import (
	"math"
	"sync"
)

// LocalFactory keeps every metric in process memory.  Metrics created twice
// with the same name and tags share their value.
type LocalFactory struct {
	mutex     sync.Mutex
	counters  map[string]*localValue
	gauges    map[string]*localValue
	summaries map[string]*LocalSummary
}

func NewLocalFactory() *LocalFactory {
	return &LocalFactory{
		counters:  make(map[string]*localValue),
		gauges:    make(map[string]*localValue),
		summaries: make(map[string]*LocalSummary),
	}
}

type localValue struct {
	mutex sync.Mutex
	value float64
}

func (v *localValue) Inc() { v.Add(1) }
func (v *localValue) Dec() { v.Add(-1) }
func (v *localValue) Sub(d float64) { v.Add(-d) }

func (v *localValue) Add(d float64) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.value += d
}

func (v *localValue) Set(x float64) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.value = x
}

func (v *localValue) Get() float64 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.value
}

// Tracks count, sum, min and max of the observed values.
type LocalSummary struct {
	mutex sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *LocalSummary) Observe(x float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.count == 0 {
		s.min, s.max = x, x
	} else {
		s.min = math.Min(s.min, x)
		s.max = math.Max(s.max, x)
	}
	s.count++
	s.sum += x
}

// Returns (count, sum, min, max).
func (s *LocalSummary) Snapshot() (int64, float64, float64, float64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.count, s.sum, s.min, s.max
}

func (f *LocalFactory) NewCounter(
	metric string,
	tags map[string]string) CounterStat {

	return f.value(f.counters, MetricKey(metric, tags))
}

func (f *LocalFactory) NewGauge(
	metric string,
	tags map[string]string) GaugeStat {

	return f.value(f.gauges, MetricKey(metric, tags))
}

func (f *LocalFactory) NewSummary(
	metric string,
	tags map[string]string) SummaryStat {

	return f.Summary(MetricKey(metric, tags))
}

func (f *LocalFactory) value(
	m map[string]*localValue,
	key string) *localValue {

	f.mutex.Lock()
	defer f.mutex.Unlock()

	v, ok := m[key]
	if !ok {
		v = &localValue{}
		m[key] = v
	}
	return v
}

// Returns the current value of a counter, keyed as by MetricKey.  Unknown
// counters read as zero.
func (f *LocalFactory) CounterValue(key string) float64 {
	return f.value(f.counters, key).Get()
}

// Returns the current value of a gauge, keyed as by MetricKey.
func (f *LocalFactory) GaugeValue(key string) float64 {
	return f.value(f.gauges, key).Get()
}

// Returns the summary registered under key, creating it if needed.
func (f *LocalFactory) Summary(key string) *LocalSummary {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	s, ok := f.summaries[key]
	if !ok {
		s = &LocalSummary{}
		f.summaries[key] = s
	}
	return s
}

// Returns a copy of all counter and gauge values, keyed as by MetricKey.
func (f *LocalFactory) Values() map[string]float64 {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	res := make(map[string]float64, len(f.counters)+len(f.gauges))
	for k, v := range f.counters {
		res[k] = v.Get()
	}
	for k, v := range f.gauges {
		res[k] = v.Get()
	}
	return res
}
