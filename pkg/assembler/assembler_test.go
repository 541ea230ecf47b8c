package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/processor"
	"go-bwfilter/pkg/stats"
)

func TestCollectorDrainsUntilEveryMarker(t *testing.T) {
	metrics := stats.NewCollector()
	in := processor.NewEdge("output", 16, 3)
	c := NewCollector(in, metrics, zaptest.NewLogger(t))

	// markers interleaved with data, as several producers would leave them
	in.Push(common.NewData(&common.Payload{Seq: 7}))
	in.Push(common.EndOfStream{})
	in.Push(common.NewData(&common.Payload{Seq: 8}))
	in.Push(common.EndOfStream{})
	in.Push(common.NewData(&common.Payload{Seq: 9}))
	in.Push(common.EndOfStream{})

	c.Run()

	assert.Equal(t, 3, c.Markers())
	assert.Equal(t, 3, c.Results())
	require.NotNil(t, c.First())
	assert.Equal(t, 7, c.First().Seq)
	assert.Len(t, metrics.Gaps(), 2)
	assert.Equal(t, 0, in.Len())
}

func TestCollectorEmptyStream(t *testing.T) {
	metrics := stats.NewCollector()
	in := processor.NewEdge("output", 4, 2)
	c := NewCollector(in, metrics, nil)

	in.Push(common.EndOfStream{})
	in.Push(common.EndOfStream{})
	c.Run()

	assert.Nil(t, c.First())
	assert.Zero(t, c.Results())
	assert.Equal(t, 2, c.Markers())
	assert.Empty(t, metrics.Gaps())
}

func TestCollectorSingleResultHasNoGap(t *testing.T) {
	metrics := stats.NewCollector()
	in := processor.NewEdge("output", 4, 1)
	c := NewCollector(in, metrics, nil)

	in.Push(common.NewData(&common.Payload{Seq: 0}))
	in.Push(common.EndOfStream{})
	c.Run()

	assert.Equal(t, 1, c.Results())
	assert.Empty(t, metrics.Gaps())
}

func TestNewCollectorRegistersSink(t *testing.T) {
	in := processor.NewEdge("output", 4, 2)
	in.AttachSource()
	NewCollector(in, stats.NewCollector(), nil)
	assert.NoError(t, in.Check())
}
