package threshold

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bwfilter/pkg/common"
)

func gradient(width, height int) *common.PixelBuffer {
	img := common.NewPixelBuffer(width, height)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % common.Levels)
	}
	return img
}

func TestBuildCountsAndTails(t *testing.T) {
	img := &common.PixelBuffer{Width: 3, Height: 2, Pix: []uint8{0, 10, 10, 200, 255, 10}}
	h := Build(img)

	assert.Equal(t, 1, h[0].Count)
	assert.Equal(t, 3, h[10].Count)
	assert.Equal(t, 1, h[200].Count)
	assert.Equal(t, 1, h[255].Count)

	assert.Equal(t, 5, h[0].Tail)
	assert.Equal(t, 2, h[10].Tail)
	assert.Equal(t, 1, h[200].Tail)
	assert.Equal(t, 0, h[255].Tail)
	require.NoError(t, h.Validate())
}

func TestMergeOfPartialsMatchesSequential(t *testing.T) {
	img := gradient(37, 23)
	want := Build(img)

	bounds := []int{0, 5, 6, 17, 23}
	partials := make([]common.Histogram, len(bounds)-1)
	for i := range partials {
		CountRows(img, &partials[i], bounds[i], bounds[i+1])
	}
	got := Merge(partials)
	ComputeTails(&got)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merged histogram mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLeavesTailsZero(t *testing.T) {
	partial := Build(gradient(4, 4))
	merged := Merge([]common.Histogram{partial})
	for c := range merged {
		assert.Zero(t, merged[c].Tail)
	}
}

func TestFilterSigma(t *testing.T) {
	// ten pixels of increasing brightness
	pix := []uint8{0, 25, 50, 75, 100, 125, 150, 175, 200, 225}

	tests := []struct {
		name  string
		sigma float64
		want  []uint8
	}{
		{
			name:  "sigma 0 keeps only the brightest",
			sigma: 0,
			want:  []uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 255},
		},
		{
			name:  "sigma 0.1 whitens top two",
			sigma: 0.1,
			want:  []uint8{0, 0, 0, 0, 0, 0, 0, 0, 255, 255},
		},
		{
			name:  "sigma 0.5",
			sigma: 0.5,
			want:  []uint8{0, 0, 0, 0, 255, 255, 255, 255, 255, 255},
		},
		{
			name:  "sigma 1 whitens everything",
			sigma: 1,
			want:  []uint8{255, 255, 255, 255, 255, 255, 255, 255, 255, 255},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &common.PixelBuffer{Width: 5, Height: 2, Pix: append([]uint8(nil), pix...)}
			h := Build(img)
			Apply(img, &h, tt.sigma)
			assert.Equal(t, tt.want, img.Pix)
		})
	}
}

func TestFilterRowsTouchesOnlyItsRows(t *testing.T) {
	img := gradient(8, 4)
	orig := img.Clone()
	h := Build(img)

	FilterRows(img, &h, 1, 3, 0.5)

	assert.Equal(t, orig.Row(0), img.Row(0))
	assert.Equal(t, orig.Row(3), img.Row(3))
	for y := 1; y < 3; y++ {
		for _, c := range img.Row(y) {
			assert.Contains(t, []uint8{common.Black, common.White}, c)
		}
	}
}

func TestFilterEmptyImage(t *testing.T) {
	img := common.NewPixelBuffer(0, 0)
	h := Build(img)
	assert.NotPanics(t, func() { Apply(img, &h, 0.1) })
}

func TestClampSigma(t *testing.T) {
	assert.Equal(t, 1.0, ClampSigma(1.5))
	assert.Equal(t, 0.0, ClampSigma(-0.2))
	assert.Equal(t, 0.3, ClampSigma(0.3))
}
