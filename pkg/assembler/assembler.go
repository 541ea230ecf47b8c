package assembler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/processor"
	"go-bwfilter/pkg/stats"
)

// Collector is the terminal stage. It drains its input edge until every
// upstream worker's marker has arrived, keeps the first result and times
// the gaps between successive results.
type Collector struct {
	in      *processor.Edge
	metrics *stats.Collector
	logger  *zap.Logger

	first   *common.Payload
	results int
	markers int
}

// NewCollector creates a collector and registers it as the sink of in.
func NewCollector(in *processor.Edge, metrics *stats.Collector, logger *zap.Logger) *Collector {
	in.AttachSink()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		in:      in,
		metrics: metrics,
		logger:  logger,
	}
}

// Run consumes results until Markers() markers have been observed.
func (c *Collector) Run() {
	c.logger.Debug("Collector started", zap.Int("expected_markers", c.in.Markers()))

	var last time.Time
	for c.markers < c.in.Markers() {
		switch item := c.in.Pop().(type) {
		case common.EndOfStream:
			c.markers++

		case *common.Data:
			now := time.Now()
			// the first arrival carries the image load, so it starts the clock
			// without contributing a gap
			if c.results > 0 {
				c.metrics.ObserveGap(now.Sub(last))
			}
			last = now

			if c.first == nil {
				c.first = item.Payload
			}
			c.results++

		default:
			panic(fmt.Sprintf("assembler: unexpected stream item %T", item))
		}
	}

	c.logger.Debug("Collector finished",
		zap.Int("results", c.results),
		zap.Int("markers", c.markers))
}

// First returns the first result received, or nil if none arrived.
func (c *Collector) First() *common.Payload {
	return c.first
}

// Results is the number of data items received.
func (c *Collector) Results() int {
	return c.results
}

// Markers is the number of end-of-stream markers received.
func (c *Collector) Markers() int {
	return c.markers
}
