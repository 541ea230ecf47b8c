package threshold

import (
	"go-bwfilter/pkg/common"
)

// CountRows adds the colors of rows [start, end) of img into h.
// Only the Count field is touched.
func CountRows(img *common.PixelBuffer, h *common.Histogram, start, end int) {
	for y := start; y < end; y++ {
		for _, c := range img.Row(y) {
			h[c].Count++
		}
	}
}

// Merge sums the counts of the partial histograms. Tails are left at zero.
func Merge(partials []common.Histogram) common.Histogram {
	var h common.Histogram
	for c := 0; c < common.Levels; c++ {
		for i := range partials {
			h[c].Count += partials[i][c].Count
		}
	}
	return h
}

// ComputeTails fills Tail with the number of pixels brighter than each level.
func ComputeTails(h *common.Histogram) {
	h[common.Levels-1].Tail = 0
	for i := common.Levels - 2; i >= 0; i-- {
		h[i].Tail = h[i+1].Count + h[i+1].Tail
	}
}

// Build computes the full histogram of img sequentially.
func Build(img *common.PixelBuffer) common.Histogram {
	var h common.Histogram
	CountRows(img, &h, 0, img.Height)
	ComputeTails(&h)
	return h
}

// FilterRows thresholds rows [start, end) of img in place. A pixel becomes
// white when the fraction of pixels brighter than it is at most sigma,
// black otherwise.
func FilterRows(img *common.PixelBuffer, h *common.Histogram, start, end int, sigma float64) {
	area := float64(img.Area())
	if area == 0 {
		return
	}
	for y := start; y < end; y++ {
		row := img.Row(y)
		for x, c := range row {
			perc := float64(h[c].Tail) / area
			if perc <= sigma {
				row[x] = common.White
			} else {
				row[x] = common.Black
			}
		}
	}
}

// Apply filters the whole image sequentially.
func Apply(img *common.PixelBuffer, h *common.Histogram, sigma float64) {
	FilterRows(img, h, 0, img.Height, sigma)
}

// ClampSigma limits sigma to [0, 1].
func ClampSigma(sigma float64) float64 {
	if sigma > 1 {
		return 1
	}
	if sigma < 0 {
		return 0
	}
	return sigma
}
