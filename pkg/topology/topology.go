// Package topology wires generators, stage runners, edges and a collector
// into one of the supported farm shapes and runs the result.
//
// Farm of sequentials ("sf"):
//
//	G --> input --> Farm(Comp(h, f)) --> output --> C
//
// Farm of pipelines of parallel stages ("pf"):
//
//	G --> input --> Farm(Pipe(Map(h), Map(f))) --> output --> C
package topology

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-bwfilter/pkg/assembler"
	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/coordinator"
	"go-bwfilter/pkg/imagestore"
	"go-bwfilter/pkg/processor"
	"go-bwfilter/pkg/stats"
)

// Shape selects the farm layout.
type Shape string

const (
	FarmOfSequential Shape = "sf"
	FarmOfPipelines  Shape = "pf"
)

var (
	// ErrUnsupportedSkeleton is returned for an unknown Shape.
	ErrUnsupportedSkeleton = errors.New("unsupported skeleton")
	// ErrAlreadyRun is returned when a graph is run twice.
	ErrAlreadyRun = errors.New("graph already run")
)

// Descriptor fixes the shape and worker counts of a run.
type Descriptor struct {
	Shape            Shape
	FarmWorkers      int
	HistogramWorkers int
	FilterWorkers    int
	QueueCapacity    int
	StreamLength     int
	Sigma            float64
	InputPath        string
	Rate             float64 // items per second emitted by the generator, 0 = unlimited
}

// Validate rejects unknown shapes and worker counts below one.
func (d Descriptor) Validate() error {
	switch d.Shape {
	case FarmOfSequential, FarmOfPipelines:
	default:
		return errors.Wrapf(ErrUnsupportedSkeleton, "%q", string(d.Shape))
	}
	if d.FarmWorkers < 1 || d.HistogramWorkers < 1 || d.FilterWorkers < 1 {
		return errors.Errorf("worker counts must be positive: farm=%d histogram=%d filter=%d",
			d.FarmWorkers, d.HistogramWorkers, d.FilterWorkers)
	}
	if d.StreamLength < 0 {
		return errors.Errorf("stream length must not be negative: %d", d.StreamLength)
	}
	return nil
}

// TotalWorkers counts the stage workers the shape runs.
func (d Descriptor) TotalWorkers() int {
	if d.Shape == FarmOfPipelines {
		return d.FarmWorkers * (d.HistogramWorkers + d.FilterWorkers)
	}
	return d.FarmWorkers
}

// Result is what a finished run produced.
type Result struct {
	First    *common.Payload // first filtered image received, nil for an empty stream
	Results  int
	Markers  int
	Setup    time.Duration
	Parallel time.Duration
}

// Graph is a built topology ready to run once.
type Graph struct {
	desc      Descriptor
	edges     []*processor.Edge
	generator *coordinator.Generator
	runners   []*processor.StageRunner
	collector *assembler.Collector
	logger    *zap.Logger

	built time.Duration
	ran   atomic.Bool
}

// Build validates desc, creates every edge and worker, and checks that the
// end-of-stream marker count balances on each edge.
func Build(desc Descriptor, store imagestore.Store, metrics *stats.Collector, logger *zap.Logger) (*Graph, error) {
	start := time.Now()
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Graph{desc: desc, logger: logger}

	farm := desc.FarmWorkers
	input := g.edge("input", desc.QueueCapacity, farm)
	output := g.edge("output", desc.QueueCapacity, farm)

	g.generator = coordinator.NewGenerator(store, desc.InputPath, desc.Sigma, desc.StreamLength, input,
		coordinator.WithRate(desc.Rate),
		coordinator.WithLogger(logger.Named("generator")))

	switch desc.Shape {
	case FarmOfSequential:
		for i := 0; i < farm; i++ {
			g.runners = append(g.runners, processor.NewStageRunner(
				fmt.Sprintf("farm-%d", i), processor.CompStage(), input, output, metrics, logger))
		}

	case FarmOfPipelines:
		for i := 0; i < farm; i++ {
			mid := g.edge(fmt.Sprintf("pipe-%d/mid", i), desc.QueueCapacity, 1)
			hist := processor.HistogramStage(processor.NewMapStage(desc.HistogramWorkers))
			filter := processor.FilterStage(processor.NewMapStage(desc.FilterWorkers))

			g.runners = append(g.runners,
				processor.NewStageRunner(fmt.Sprintf("pipe-%d/histogram", i), hist, input, mid, metrics, logger),
				processor.NewStageRunner(fmt.Sprintf("pipe-%d/filter", i), filter, mid, output, metrics, logger),
			)
		}
	}

	g.collector = assembler.NewCollector(output, metrics, logger.Named("collector"))

	for _, e := range g.edges {
		if err := e.Check(); err != nil {
			return nil, err
		}
	}

	g.built = time.Since(start)
	return g, nil
}

func (g *Graph) edge(name string, capacity, markers int) *processor.Edge {
	e := processor.NewEdge(name, capacity, markers)
	g.edges = append(g.edges, e)
	return e
}

// Descriptor returns the configuration the graph was built from.
func (g *Graph) Descriptor() Descriptor {
	return g.desc
}

// Edges returns the graph's edges in creation order.
func (g *Graph) Edges() []*processor.Edge {
	return g.edges
}

// Run starts the generator, every runner and the collector, then waits for
// all of them. Setup covers building the graph and spawning its goroutines;
// Parallel covers the time from spawn to join.
func (g *Graph) Run(ctx context.Context) (Result, error) {
	if !g.ran.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}

	g.logger.Info("Starting topology",
		zap.String("skeleton", string(g.desc.Shape)),
		zap.Int("workers", g.desc.TotalWorkers()),
		zap.Int("stream_length", g.desc.StreamLength))

	var eg errgroup.Group
	spawn := time.Now()

	eg.Go(func() error {
		return g.generator.Run(ctx)
	})
	for _, r := range g.runners {
		eg.Go(func() error {
			r.Run()
			return nil
		})
	}
	eg.Go(func() error {
		g.collector.Run()
		return nil
	})

	setup := g.built + time.Since(spawn)
	runStart := time.Now()
	err := eg.Wait()
	parallel := time.Since(runStart)

	res := Result{
		First:    g.collector.First(),
		Results:  g.collector.Results(),
		Markers:  g.collector.Markers(),
		Setup:    setup,
		Parallel: parallel,
	}

	g.logger.Info("Topology finished",
		zap.Int("results", res.Results),
		zap.Int("markers", res.Markers),
		zap.Duration("parallel", parallel))
	return res, err
}
