package hpss

import "slices"

// medianFilter writes the running median of src over an odd window k into
// dst. Samples past either edge are mirrored (d c b a | a b c d | d c b a).
// The window is kept sorted and updated by one removal and one insertion
// per step.
func medianFilter(dst, src []float64, k int) {
	n := len(src)
	if n == 0 {
		return
	}
	if k <= 1 {
		copy(dst, src)
		return
	}
	r := k / 2
	win := make([]float64, 0, k)
	for j := -r; j <= r; j++ {
		win = insertSorted(win, src[reflect(j, n)])
	}
	dst[0] = win[r]
	for i := 1; i < n; i++ {
		win = removeSorted(win, src[reflect(i-r-1, n)])
		win = insertSorted(win, src[reflect(i+r, n)])
		dst[i] = win[r]
	}
}

func insertSorted(win []float64, v float64) []float64 {
	i, _ := slices.BinarySearch(win, v)
	return slices.Insert(win, i, v)
}

func removeSorted(win []float64, v float64) []float64 {
	i, found := slices.BinarySearch(win, v)
	if !found {
		return win
	}
	return slices.Delete(win, i, i+1)
}

// reflect maps any index onto [0, n) by mirroring about the edges,
// repeating the edge sample.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
