package processor

// RowRange is the half-open row interval [Start, End).
type RowRange struct {
	Start int
	End   int
}

// Len is the number of rows in the range.
func (r RowRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no rows.
func (r RowRange) Empty() bool {
	return r.Len() == 0
}

// Partition splits [0, height) into n contiguous chunks of ceil(height/n)
// rows. The split is static; trailing chunks may be short or empty when
// n does not divide height or exceeds it.
func Partition(height, n int) []RowRange {
	if n < 1 {
		n = 1
	}
	if height < 0 {
		height = 0
	}

	chunk := (height + n - 1) / n
	ranges := make([]RowRange, n)
	for i := range ranges {
		start := min(height, i*chunk)
		end := min(height, (i+1)*chunk)
		ranges[i] = RowRange{Start: start, End: end}
	}
	return ranges
}
