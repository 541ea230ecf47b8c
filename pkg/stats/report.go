package stats

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Run describes the timings the harness measured around a run.
type Run struct {
	RunID        string
	Skeleton     string
	Workers      int
	StreamLength int
	Results      int
	Setup        time.Duration
	Parallel     time.Duration
	Timestamp    time.Time
}

// Report is the end-of-run summary.
type Report struct {
	RunID        string
	Skeleton     string
	Workers      int
	StreamLength int
	Results      int
	Dropped      int64
	Timestamp    time.Time

	Setup      time.Duration
	Parallel   time.Duration
	Completion time.Duration

	// Latency is the mean time an item spends inside stage transforms.
	Latency time.Duration
	// ServiceTime is the mean gap between results once the stream is warm.
	ServiceTime   time.Duration
	ServiceStdDev time.Duration
	ServiceMedian time.Duration
}

// NewReport combines the run timings with what c accumulated.
func NewReport(c *Collector, run Run) Report {
	r := Report{
		RunID:        run.RunID,
		Skeleton:     run.Skeleton,
		Workers:      run.Workers,
		StreamLength: run.StreamLength,
		Results:      run.Results,
		Dropped:      c.Dropped(),
		Timestamp:    run.Timestamp,
		Setup:        run.Setup,
		Parallel:     run.Parallel,
		Completion:   run.Setup + run.Parallel,
	}
	if run.StreamLength > 0 {
		r.Latency = c.TotalLatency() / time.Duration(run.StreamLength)
	}

	gaps := c.Gaps()
	if len(gaps) == 0 {
		// a single result has no steady state
		r.ServiceTime = r.Latency
		return r
	}

	samples := make([]float64, len(gaps))
	for i, g := range gaps {
		samples[i] = float64(g)
	}
	r.ServiceTime = time.Duration(stat.Mean(samples, nil))

	sort.Float64s(samples)
	r.ServiceMedian = time.Duration(stat.Quantile(0.5, stat.Empirical, samples, nil))
	if len(samples) > 1 {
		r.ServiceStdDev = time.Duration(stat.StdDev(samples, nil))
	}
	return r
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// String renders the single report line, times in milliseconds.
func (r Report) String() string {
	return fmt.Sprintf("n %d s %d tpar %.3f stp %.3f tc %.3f lcy %.3f ts %.3f",
		r.Workers,
		r.StreamLength,
		millis(r.Parallel),
		millis(r.Setup),
		millis(r.Completion),
		millis(r.Latency),
		millis(r.ServiceTime),
	)
}
