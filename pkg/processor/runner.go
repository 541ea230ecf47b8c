package processor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/stats"
)

// StageRunner is one worker of a stage: it pops items from its input edge,
// applies the stage transform and pushes the result downstream until it
// receives its end-of-stream marker.
type StageRunner struct {
	name    string
	stage   Stage
	in      *Edge
	out     *Edge
	metrics *stats.Collector
	logger  *zap.Logger
}

// NewStageRunner creates a runner consuming one marker from in and
// forwarding one marker to out. out may be nil for a terminal worker.
// Both edges record the runner so that Edge.Check can verify the counts.
func NewStageRunner(name string, stage Stage, in, out *Edge, metrics *stats.Collector, logger *zap.Logger) *StageRunner {
	in.attachConsumer()
	if out != nil {
		out.attachProducer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StageRunner{
		name:    name,
		stage:   stage,
		in:      in,
		out:     out,
		metrics: metrics,
		logger:  logger.With(zap.String("worker", name), zap.String("stage", string(stage.Name))),
	}
}

// Name identifies the runner.
func (r *StageRunner) Name() string {
	return r.name
}

// Run consumes the input edge until a marker arrives. It returns the
// number of items it pushed downstream.
func (r *StageRunner) Run() int {
	r.logger.Debug("Worker started")
	processed := 0

	for {
		switch item := r.in.Pop().(type) {
		case common.EndOfStream:
			if r.out != nil {
				r.out.Forward()
			}
			r.logger.Debug("Worker shutting down", zap.Int("processed", processed))
			return processed

		case *common.Data:
			start := time.Now()
			err := r.stage.Apply(item.Payload)
			elapsed := time.Since(start)

			if err != nil {
				r.metrics.Drop()
				r.logger.Warn("Dropping item", zap.Error(err))
				continue
			}
			r.metrics.ObserveLatency(r.stage.Name, elapsed)

			if r.out != nil {
				r.out.Push(item)
			}
			processed++

		default:
			panic(fmt.Sprintf("processor: unexpected stream item %T on edge %q", item, r.in.Name()))
		}
	}
}
