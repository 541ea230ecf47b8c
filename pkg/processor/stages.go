package processor

import (
	"github.com/pkg/errors"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/stats"
	"go-bwfilter/pkg/threshold"
)

// ErrMalformedItem is returned by a transform that cannot work on a payload.
var ErrMalformedItem = errors.New("malformed stream item")

// Stage is a named transform applied to one payload at a time. Transforms
// work in place: the histogram stage fills Payload.Histogram, the filter
// stage rewrites Payload.Image.
type Stage struct {
	Name  stats.Stage
	Apply func(p *common.Payload) error
}

func checkImage(p *common.Payload) error {
	if p == nil {
		return errors.Wrap(ErrMalformedItem, "nil payload")
	}
	if err := p.Image.Validate(); err != nil {
		return errors.Wrapf(ErrMalformedItem, "item %d: %v", p.Seq, err)
	}
	return nil
}

// BuildHistogram computes the histogram of img with each worker of m
// counting its own rows into a private partial.
func BuildHistogram(img *common.PixelBuffer, m *MapStage) (common.Histogram, error) {
	partials := make([]common.Histogram, m.Workers())
	err := m.Run(img.Height, func(w int, rows RowRange) error {
		threshold.CountRows(img, &partials[w], rows.Start, rows.End)
		return nil
	})
	if err != nil {
		return common.Histogram{}, err
	}

	h := threshold.Merge(partials)
	threshold.ComputeTails(&h)
	return h, nil
}

// FilterImage thresholds img in place, each worker of m owning disjoint rows.
func FilterImage(img *common.PixelBuffer, h *common.Histogram, sigma float64, m *MapStage) error {
	return m.Run(img.Height, func(_ int, rows RowRange) error {
		threshold.FilterRows(img, h, rows.Start, rows.End, sigma)
		return nil
	})
}

// HistogramStage builds the histogram with m's workers.
func HistogramStage(m *MapStage) Stage {
	return Stage{
		Name: stats.StageHistogram,
		Apply: func(p *common.Payload) error {
			if err := checkImage(p); err != nil {
				return err
			}
			h, err := BuildHistogram(p.Image, m)
			if err != nil {
				return err
			}
			p.Histogram = &h
			return nil
		},
	}
}

// FilterStage applies the threshold with m's workers. The payload must
// already carry its histogram.
func FilterStage(m *MapStage) Stage {
	return Stage{
		Name: stats.StageFilter,
		Apply: func(p *common.Payload) error {
			if err := checkImage(p); err != nil {
				return err
			}
			if p.Histogram == nil {
				return errors.Wrapf(ErrMalformedItem, "item %d has no histogram", p.Seq)
			}
			return FilterImage(p.Image, p.Histogram, p.Sigma, m)
		},
	}
}

// CompStage builds the histogram and filters sequentially in one step.
func CompStage() Stage {
	return Stage{
		Name: stats.StageComp,
		Apply: func(p *common.Payload) error {
			if err := checkImage(p); err != nil {
				return err
			}
			h := threshold.Build(p.Image)
			threshold.Apply(p.Image, &h, p.Sigma)
			p.Histogram = &h
			return nil
		},
	}
}
