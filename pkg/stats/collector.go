package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage names the transform a latency sample belongs to.
type Stage string

const (
	StageHistogram Stage = "histogram"
	StageFilter    Stage = "filter"
	StageComp      Stage = "comp" // histogram and filter fused in one worker
)

type stageCounter struct {
	nanos atomic.Int64
	items atomic.Int64
}

// Collector accumulates per-stage latency and the inter-arrival gaps seen
// by the terminal stage. One Collector serves one run; every stage gets a
// pointer to it. Counters are updated with atomic adds and should be read
// after all stages have joined.
type Collector struct {
	stages  sync.Map // Stage -> *stageCounter
	dropped atomic.Int64

	gapsMu sync.Mutex
	gaps   []time.Duration

	registry    *prometheus.Registry
	latencyHist *prometheus.HistogramVec
	serviceHist prometheus.Histogram
	itemsTotal  *prometheus.CounterVec
	dropsTotal  prometheus.Counter
}

// NewCollector creates a zeroed collector with its own Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		latencyHist: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bwfilter_stage_latency_seconds",
				Help:    "Time spent inside a stage transform per item",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
			},
			[]string{"stage"},
		),
		serviceHist: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bwfilter_service_time_seconds",
				Help:    "Gap between successive results at the collector",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 18),
			},
		),
		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bwfilter_items_total",
				Help: "Items processed per stage",
			},
			[]string{"stage"},
		),
		dropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bwfilter_items_dropped_total",
				Help: "Items discarded after a transform failure",
			},
		),
	}
	c.registry.MustRegister(c.latencyHist, c.serviceHist, c.itemsTotal, c.dropsTotal)
	return c
}

func (c *Collector) counter(stage Stage) *stageCounter {
	if v, ok := c.stages.Load(stage); ok {
		return v.(*stageCounter)
	}
	v, _ := c.stages.LoadOrStore(stage, &stageCounter{})
	return v.(*stageCounter)
}

// ObserveLatency adds d to the aggregate latency of stage.
func (c *Collector) ObserveLatency(stage Stage, d time.Duration) {
	sc := c.counter(stage)
	sc.nanos.Add(int64(d))
	sc.items.Add(1)

	c.latencyHist.WithLabelValues(string(stage)).Observe(d.Seconds())
	c.itemsTotal.WithLabelValues(string(stage)).Inc()
}

// ObserveGap records the time between two successive result arrivals.
func (c *Collector) ObserveGap(d time.Duration) {
	c.gapsMu.Lock()
	c.gaps = append(c.gaps, d)
	c.gapsMu.Unlock()

	c.serviceHist.Observe(d.Seconds())
}

// Drop counts an item discarded by a failing transform.
func (c *Collector) Drop() {
	c.dropped.Add(1)
	c.dropsTotal.Inc()
}

// Latency returns the aggregate latency recorded for stage.
func (c *Collector) Latency(stage Stage) time.Duration {
	return time.Duration(c.counter(stage).nanos.Load())
}

// Items returns how many items stage has processed.
func (c *Collector) Items(stage Stage) int64 {
	return c.counter(stage).items.Load()
}

// TotalLatency sums the latency of every stage.
func (c *Collector) TotalLatency() time.Duration {
	var total int64
	c.stages.Range(func(_, v any) bool {
		total += v.(*stageCounter).nanos.Load()
		return true
	})
	return time.Duration(total)
}

// Dropped returns the number of discarded items.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Gaps returns a copy of the recorded inter-arrival gaps.
func (c *Collector) Gaps() []time.Duration {
	c.gapsMu.Lock()
	defer c.gapsMu.Unlock()
	out := make([]time.Duration, len(c.gaps))
	copy(out, c.gaps)
	return out
}

// Registry exposes the Prometheus instruments of this run.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
