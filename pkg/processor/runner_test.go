package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/stats"
	"go-bwfilter/pkg/threshold"
)

func testImage(width, height int) *common.PixelBuffer {
	img := common.NewPixelBuffer(width, height)
	for i := range img.Pix {
		img.Pix[i] = uint8((i * 13) % common.Levels)
	}
	return img
}

func TestStageRunnerForwardsItemsAndOneMarker(t *testing.T) {
	metrics := stats.NewCollector()
	in := NewEdge("in", 8, 1)
	out := NewEdge("out", 8, 1)
	in.AttachSource()
	out.AttachSink()

	r := NewStageRunner("comp", CompStage(), in, out, metrics, zaptest.NewLogger(t))
	require.NoError(t, in.Check())
	require.NoError(t, out.Check())

	for i := 0; i < 3; i++ {
		in.Push(common.NewData(&common.Payload{Seq: i, Image: testImage(6, 4), Sigma: 0.2}))
	}
	in.Seal()

	assert.Equal(t, 3, r.Run())
	require.Equal(t, 4, out.Len())

	for i := 0; i < 3; i++ {
		item, ok := out.Pop().(*common.Data)
		require.True(t, ok)
		assert.Equal(t, i, item.Payload.Seq)
		require.NotNil(t, item.Payload.Histogram)
		for _, c := range item.Payload.Image.Pix {
			assert.Contains(t, []uint8{common.Black, common.White}, c)
		}
	}
	assert.Equal(t, common.EndOfStream{}, out.Pop())

	assert.Equal(t, int64(3), metrics.Items(stats.StageComp))
	assert.Zero(t, metrics.Dropped())
}

func TestStageRunnerDropsMalformedItems(t *testing.T) {
	metrics := stats.NewCollector()
	in := NewEdge("in", 8, 1)
	out := NewEdge("out", 8, 1)

	r := NewStageRunner("comp", CompStage(), in, out, metrics, zaptest.NewLogger(t))

	in.Push(common.NewData(&common.Payload{Seq: 0, Image: &common.PixelBuffer{Width: 4, Height: 4, Pix: make([]uint8, 3)}}))
	in.Push(common.NewData(nil))
	in.Push(common.NewData(&common.Payload{Seq: 2, Image: testImage(2, 2)}))
	in.Seal()

	assert.Equal(t, 1, r.Run())
	assert.Equal(t, int64(2), metrics.Dropped())

	item, ok := out.Pop().(*common.Data)
	require.True(t, ok)
	assert.Equal(t, 2, item.Payload.Seq)
	assert.Equal(t, common.EndOfStream{}, out.Pop())
}

func TestFilterStageRequiresHistogram(t *testing.T) {
	err := FilterStage(NewMapStage(2)).Apply(&common.Payload{Image: testImage(3, 3)})
	assert.ErrorIs(t, err, ErrMalformedItem)
}

func TestPipelineStagesMatchComp(t *testing.T) {
	img := testImage(19, 11)

	comp := &common.Payload{Image: img.Clone(), Sigma: 0.1}
	require.NoError(t, CompStage().Apply(comp))

	pipe := &common.Payload{Image: img.Clone(), Sigma: 0.1}
	require.NoError(t, HistogramStage(NewMapStage(4)).Apply(pipe))
	require.NoError(t, FilterStage(NewMapStage(3)).Apply(pipe))

	assert.Equal(t, comp.Image.Pix, pipe.Image.Pix)
	assert.Equal(t, *comp.Histogram, *pipe.Histogram)
	require.NoError(t, pipe.Histogram.Validate())

	want := threshold.Build(img)
	assert.Equal(t, want, *pipe.Histogram)
}
