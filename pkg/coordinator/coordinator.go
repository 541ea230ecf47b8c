package coordinator

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/imagestore"
	"go-bwfilter/pkg/processor"
)

// Generator loads one image and emits it as a stream of independent items,
// then seals its output edge with one marker per downstream consumer.
type Generator struct {
	store        imagestore.Store
	path         string
	sigma        float64
	streamLength int
	out          *processor.Edge
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRate paces emission to perSecond items per second. Zero or less
// means unlimited.
func WithRate(perSecond float64) Option {
	return func(g *Generator) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a generator that feeds out and registers as its
// source.
func NewGenerator(store imagestore.Store, path string, sigma float64, streamLength int, out *processor.Edge, opts ...Option) *Generator {
	g := &Generator{
		store:        store,
		path:         path,
		sigma:        sigma,
		streamLength: streamLength,
		out:          out,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	out.AttachSource()
	return g
}

// Run loads the image, pushes streamLength copies and seals the edge. The
// edge is sealed on every path so downstream workers always terminate;
// a load failure or a cancelled ctx is returned after sealing.
func (g *Generator) Run(ctx context.Context) error {
	defer g.out.Seal()

	g.logger.Debug("Generator: Loading image", zap.String("path", g.path))
	img, err := g.store.Load(g.path)
	if err != nil {
		return errors.Wrap(err, "generator: load image")
	}

	for i := 0; i < g.streamLength; i++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return errors.Wrapf(err, "generator: stopped after %d items", i)
			}
		}

		// every item owns its pixels; the filter rewrites them in place
		g.out.Push(common.NewData(&common.Payload{
			Seq:   i,
			Image: img.Clone(),
			Sigma: g.sigma,
		}))
	}

	g.logger.Debug("Generator: Stream emitted",
		zap.Int("items", g.streamLength),
		zap.Int("markers", g.out.Markers()))
	return nil
}
