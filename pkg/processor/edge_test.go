package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bwfilter/pkg/common"
	"go-bwfilter/pkg/stats"
)

func TestEdgeCheck(t *testing.T) {
	comp := CompStage()
	metrics := stats.NewCollector()

	tests := []struct {
		name    string
		markers int
		wire    func(e *Edge)
		wantErr bool
	}{
		{
			name:    "source to consumers",
			markers: 3,
			wire: func(e *Edge) {
				e.AttachSource()
				for i := 0; i < 3; i++ {
					NewStageRunner("w", comp, e, nil, metrics, nil)
				}
			},
		},
		{
			name:    "producers to sink",
			markers: 2,
			wire: func(e *Edge) {
				src := NewEdge("src", 1, 2)
				for i := 0; i < 2; i++ {
					NewStageRunner("w", comp, src, e, metrics, nil)
				}
				e.AttachSink()
			},
		},
		{
			name:    "one producer to one consumer",
			markers: 1,
			wire: func(e *Edge) {
				NewStageRunner("up", comp, NewEdge("src", 1, 1), e, metrics, nil)
				NewStageRunner("down", comp, e, nil, metrics, nil)
			},
		},
		{
			name:    "too few consumers",
			markers: 3,
			wire: func(e *Edge) {
				e.AttachSource()
				NewStageRunner("w", comp, e, nil, metrics, nil)
			},
			wantErr: true,
		},
		{
			name:    "too many consumers",
			markers: 1,
			wire: func(e *Edge) {
				e.AttachSource()
				NewStageRunner("a", comp, e, nil, metrics, nil)
				NewStageRunner("b", comp, e, nil, metrics, nil)
			},
			wantErr: true,
		},
		{
			name:    "producer count differs from markers",
			markers: 2,
			wire: func(e *Edge) {
				NewStageRunner("w", comp, NewEdge("src", 1, 1), e, metrics, nil)
				e.AttachSink()
			},
			wantErr: true,
		},
		{
			name:    "source and producers together",
			markers: 1,
			wire: func(e *Edge) {
				e.AttachSource()
				NewStageRunner("w", comp, NewEdge("src", 1, 1), e, metrics, nil)
				e.AttachSink()
			},
			wantErr: true,
		},
		{
			name:    "no reader",
			markers: 1,
			wire: func(e *Edge) {
				e.AttachSource()
			},
			wantErr: true,
		},
		{
			name:    "zero markers",
			markers: 0,
			wire: func(e *Edge) {
				e.AttachSource()
				e.AttachSink()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEdge(tt.name, 4, tt.markers)
			tt.wire(e)

			err := e.Check()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMarkerMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEdgeSealPushesEveryMarker(t *testing.T) {
	e := NewEdge("input", 8, 5)
	e.Seal()
	require.Equal(t, 5, e.Len())
	for i := 0; i < 5; i++ {
		assert.Equal(t, common.EndOfStream{}, e.Pop())
	}
}
