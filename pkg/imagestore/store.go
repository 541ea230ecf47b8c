package imagestore

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"

	"go-bwfilter/pkg/common"
)

// ErrUnsupportedFormat is returned when a file extension has no encoder.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Store loads and saves grayscale pixel buffers by path.
type Store interface {
	Load(path string) (*common.PixelBuffer, error)
	Save(path string, buf *common.PixelBuffer) error
}

// FileStore reads and writes image files on disk. The codec is chosen
// from the file extension.
type FileStore struct{}

// NewFileStore returns a disk-backed store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Load decodes the image at path and converts it to gray.
func (FileStore) Load(path string) (*common.PixelBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	var img image.Image
	switch ext(path) {
	case ".bmp":
		img, err = bmp.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	default:
		img, _, err = image.Decode(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}

	return FromImage(img), nil
}

// Save encodes buf at path, replacing any existing file.
func (FileStore) Save(path string, buf *common.PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	var encode func(f *os.File, img image.Image) error
	switch ext(path) {
	case ".bmp":
		encode = func(f *os.File, img image.Image) error { return bmp.Encode(f, img) }
	case ".png":
		encode = func(f *os.File, img image.Image) error { return png.Encode(f, img) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File, img image.Image) error { return jpeg.Encode(f, img, &jpeg.Options{Quality: 95}) }
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "save %s", path)
	}

	outputFile, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer outputFile.Close()

	if err := encode(outputFile, ToImage(buf)); err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// FromImage converts any image to an 8-bit gray buffer.
func FromImage(img image.Image) *common.PixelBuffer {
	bounds := img.Bounds()
	buf := common.NewPixelBuffer(bounds.Dx(), bounds.Dy())

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < buf.Height; y++ {
			start := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Row(y), gray.Pix[start:start+buf.Width])
		}
		return buf
	}

	for y := 0; y < buf.Height; y++ {
		row := buf.Row(y)
		for x := range row {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			row[x] = c.Y
		}
	}
	return buf
}

// ToImage wraps buf as an *image.Gray without copying.
func ToImage(buf *common.PixelBuffer) *image.Gray {
	return &image.Gray{
		Pix:    buf.Pix,
		Stride: buf.Width,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
}

// MemStore keeps buffers in memory, keyed by path.
type MemStore struct {
	mu     sync.Mutex
	images map[string]*common.PixelBuffer
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{images: make(map[string]*common.PixelBuffer)}
}

// Load returns a copy of the buffer stored under path.
func (m *MemStore) Load(path string) (*common.PixelBuffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.images[path]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "open %s", path)
	}
	return buf.Clone(), nil
}

// Save stores a copy of buf under path.
func (m *MemStore) Save(path string, buf *common.PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	m.mu.Lock()
	m.images[path] = buf.Clone()
	m.mu.Unlock()
	return nil
}
