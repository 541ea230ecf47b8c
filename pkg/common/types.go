package common

import (
	"github.com/pkg/errors"
)

const (
	// Levels is the number of gray levels in an 8-bit image.
	Levels = 256

	White = 255
	Black = 0
)

// PixelBuffer is a row-major 8-bit grayscale image.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a black image of the given size.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Row returns the pixels of row y. The slice aliases the buffer.
func (b *PixelBuffer) Row(y int) []uint8 {
	return b.Pix[y*b.Width : (y+1)*b.Width]
}

// Area is the number of pixels in the image.
func (b *PixelBuffer) Area() int {
	return b.Width * b.Height
}

// Clone returns a deep copy so every stream item owns its pixels.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Validate reports whether the buffer dimensions match its pixel storage.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return errors.New("nil pixel buffer")
	}
	if b.Width < 0 || b.Height < 0 || len(b.Pix) != b.Width*b.Height {
		return errors.Errorf("pixel buffer %dx%d has %d pixels", b.Width, b.Height, len(b.Pix))
	}
	return nil
}

// Bin is one histogram level: how many pixels have this color and
// how many are strictly brighter.
type Bin struct {
	Count int `json:"count"`
	Tail  int `json:"tail"`
}

// Histogram holds one bin per gray level.
type Histogram [Levels]Bin

// Validate checks the tail-sum invariant.
func (h *Histogram) Validate() error {
	if h[Levels-1].Tail != 0 {
		return errors.Errorf("tail[%d] = %d, want 0", Levels-1, h[Levels-1].Tail)
	}
	for i := Levels - 2; i >= 0; i-- {
		if want := h[i+1].Count + h[i+1].Tail; h[i].Tail != want {
			return errors.Errorf("tail[%d] = %d, want %d", i, h[i].Tail, want)
		}
	}
	return nil
}

// Payload is the work carried by a data item between stages.
type Payload struct {
	Seq       int
	Image     *PixelBuffer
	Sigma     float64
	Histogram *Histogram // set by the histogram stage
}

// StreamItem is either *Data or EndOfStream.
type StreamItem interface {
	streamItem()
}

// Data wraps a payload travelling through the pipeline.
type Data struct {
	Payload *Payload
}

// EndOfStream is the marker a producer emits once per downstream consumer.
type EndOfStream struct{}

func (*Data) streamItem()       {}
func (EndOfStream) streamItem() {}

// NewData wraps p into a stream item.
func NewData(p *Payload) StreamItem {
	return &Data{Payload: p}
}
