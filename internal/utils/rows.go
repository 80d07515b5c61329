package utils

import (
	"runtime"
	"sync"
)

// SplitRows divides h rows into at most workers contiguous bands.
func SplitRows(h, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > h {
		workers = h
	}
	rows := make([][2]int, 0, workers)
	if h <= 0 {
		return rows
	}
	step := h / workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + step
		if i == workers-1 {
			end = h
		}
		rows = append(rows, [2]int{start, end})
		start = end
	}
	return rows
}

// ParallelRows calls fn for bands of [0, h) on one goroutine per CPU and
// waits for all of them. fn must only write rows inside its band.
func ParallelRows(h int, fn func(y0, y1 int)) {
	bands := SplitRows(h, runtime.GOMAXPROCS(0))
	if len(bands) == 1 {
		fn(bands[0][0], bands[0][1])
		return
	}
	var wg sync.WaitGroup
	for _, b := range bands {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(b[0], b[1])
	}
	wg.Wait()
}
