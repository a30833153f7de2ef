// Package pstats summarizes latency samples as percentiles.
package pstats

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/lericson/pylibmc/errors"
)

type PStats struct {
	Min time.Duration
	Max time.Duration
	// percentile levels desired as integers: 75 = P75, 99 = P99, 999 = P99.9, etc.
	Pctls []int
	// percentiles values (reads nicely, eg, P[99] etc).
	P map[int]time.Duration
}

type DurationSlice []time.Duration

func (ds DurationSlice) Len() int           { return len(ds) }
func (ds DurationSlice) Less(i, j int) bool { return ds[i] < ds[j] }
func (ds DurationSlice) Swap(i, j int)      { ds[i], ds[j] = ds[j], ds[i] }

// Note provided samples are sorted in place.  pctls must be strictly
// increasing and positive.
func NewPStats(samples []time.Duration, pctls []int) (*PStats, error) {
	if len(samples) == 0 {
		return nil, errors.New("No samples provided")
	}
	if len(pctls) < 1 {
		return nil, errors.New("No percentiles provided")
	}

	prevPctl := 0
	for _, pctl := range pctls {
		if pctl <= prevPctl {
			return nil, errors.Newf("Invalid percentiles: %v", pctls)
		}
		prevPctl = pctl
	}

	pstats := &PStats{
		Pctls: make([]int, len(pctls)),
		P:     make(map[int]time.Duration, len(pctls)),
	}
	copy(pstats.Pctls, pctls)

	sort.Sort(DurationSlice(samples))
	pstats.Min = samples[0]
	pstats.Max = samples[len(samples)-1]

	n := len(samples)
	for _, pctl := range pctls {
		si := int(math.Floor(float64(n-1) * float64(pctl) / pctlDenominator(pctl)))
		pstats.P[pctl] = samples[si]
	}
	return pstats, nil
}

// 99 -> 100, 999 -> 1000, 9999 -> 10000.
func pctlDenominator(pctl int) float64 {
	if pctl < 100 {
		return 100
	}
	return math.Pow(10, math.Ceil(math.Log10(float64(pctl))))
}

func pctlName(pctl int) string {
	if pctl < 100 {
		return fmt.Sprintf("p%d", pctl)
	}
	s := fmt.Sprintf("%d", pctl)
	if pctlDenominator(pctl) == float64(pctl) {
		return "p" + s
	}
	return "p" + s[:2] + "." + s[2:]
}

// e.g. "min=1ms p50=2ms p99.9=8ms max=9ms"
func (p *PStats) String() string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "min=%s", p.Min)
	for _, pctl := range p.Pctls {
		fmt.Fprintf(buf, " %s=%s", pctlName(pctl), p.P[pctl])
	}
	fmt.Fprintf(buf, " max=%s", p.Max)
	return buf.String()
}

// Keeps a uniform random sample of at most capacity durations out of
// everything added (Vitter's algorithm R).  Not thread-safe.
type Reservoir struct {
	capacity int
	seen     int64
	samples  []time.Duration
	rand     *rand.Rand
}

func NewReservoir(capacity int, seed int64) *Reservoir {
	return &Reservoir{
		capacity: capacity,
		samples:  make([]time.Duration, 0, capacity),
		rand:     rand.New(rand.NewSource(seed)),
	}
}

func (r *Reservoir) Add(d time.Duration) {
	r.seen++
	if len(r.samples) < r.capacity {
		r.samples = append(r.samples, d)
		return
	}
	if i := r.rand.Int63n(r.seen); i < int64(r.capacity) {
		r.samples[i] = d
	}
}

// The number of durations added so far.
func (r *Reservoir) Seen() int64 {
	return r.seen
}

// The retained samples.  The slice is owned by the reservoir.
func (r *Reservoir) Samples() []time.Duration {
	return r.samples
}
