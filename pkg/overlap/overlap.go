// Package overlap measures the voxel-level agreement between a cell
// segmentation and a nuclei segmentation of the same volume. One pass
// over every voxel produces per-label voxel counts for both label sets
// and a pairwise co-occurrence matrix; these statistics drive the
// over/under-segmentation analysis in pkg/correction.
package overlap

import (
	"sync"

	"segcorrect/pkg/volume"
)

// DefaultMaxLabels bounds the size of the dense per-label count arrays.
// A volume whose maximum label exceeds this ceiling fails with a
// CapacityExceededError instead of allocating unbounded memory.
const DefaultMaxLabels = 1 << 20

// Pair identifies one cell/nucleus label pair in the overlap matrix.
type Pair struct {
	Cell    int32
	Nucleus int32
}

// Stats holds the result of one counting pass. CellCounts and
// NucleiCounts are dense, indexed by label id from 0 to the volume's
// maximum label; index 0 (background) is present but ignored
// downstream. The overlap matrix is sparse: most cell/nucleus pairs
// never touch, so only observed pairs are stored.
type Stats struct {
	CellCounts   []int64
	NucleiCounts []int64
	Overlap      map[Pair]int64
}

// OverlapCount returns the number of voxels where cell label c and
// nucleus label n coincide.
func (s *Stats) OverlapCount(c, n int32) int64 {
	return s.Overlap[Pair{Cell: c, Nucleus: n}]
}

// Counter runs the counting pass, optionally split across worker
// goroutines over disjoint plane ranges.
type Counter struct {
	workers   int
	maxLabels int
}

// NewCounter returns a counter using the given number of workers.
// workers < 1 selects a single serial pass.
func NewCounter(workers int) *Counter {
	if workers < 1 {
		workers = 1
	}
	return &Counter{workers: workers, maxLabels: DefaultMaxLabels}
}

// SetMaxLabels overrides the label capacity ceiling.
func (c *Counter) SetMaxLabels(n int) {
	c.maxLabels = n
}

// Count measures per-label sizes and pairwise overlap between the two
// segmentations. The volumes must have identical shape. The pass is
// data-parallel over plane ranges: each worker accumulates private
// partial statistics which are summed afterwards, so no locking is
// needed while counting.
func (c *Counter) Count(cells, nuclei *volume.LabelVolume) (*Stats, error) {
	if err := volume.CheckShapes(cells.Shape, nuclei.Shape); err != nil {
		return nil, err
	}

	maxCell := int(cells.MaxLabel())
	maxNucleus := int(nuclei.MaxLabel())
	if maxCell+1 > c.maxLabels {
		return nil, &volume.CapacityExceededError{Labels: maxCell + 1, Limit: c.maxLabels}
	}
	if maxNucleus+1 > c.maxLabels {
		return nil, &volume.CapacityExceededError{Labels: maxNucleus + 1, Limit: c.maxLabels}
	}

	depth := cells.Shape.Depth
	workers := c.workers
	if workers > depth {
		workers = depth
	}
	if workers < 1 {
		workers = 1
	}

	partials := make([]*Stats, workers)
	planesPerWorker := (depth + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			zStart := worker * planesPerWorker
			zEnd := zStart + planesPerWorker
			if zEnd > depth {
				zEnd = depth
			}
			if zStart >= depth {
				partials[worker] = newStats(maxCell, maxNucleus)
				return
			}

			partials[worker] = countPlanes(cells, nuclei, zStart, zEnd, maxCell, maxNucleus)
		}(w)
	}
	wg.Wait()

	// Commutative sum reduction over the partial statistics.
	total := partials[0]
	for _, p := range partials[1:] {
		for i, n := range p.CellCounts {
			total.CellCounts[i] += n
		}
		for i, n := range p.NucleiCounts {
			total.NucleiCounts[i] += n
		}
		for pair, n := range p.Overlap {
			total.Overlap[pair] += n
		}
	}
	return total, nil
}

func newStats(maxCell, maxNucleus int) *Stats {
	return &Stats{
		CellCounts:   make([]int64, maxCell+1),
		NucleiCounts: make([]int64, maxNucleus+1),
		Overlap:      make(map[Pair]int64),
	}
}

// countPlanes accumulates statistics for the plane range [zStart, zEnd).
func countPlanes(cells, nuclei *volume.LabelVolume, zStart, zEnd, maxCell, maxNucleus int) *Stats {
	st := newStats(maxCell, maxNucleus)
	planeLen := cells.Shape.Width * cells.Shape.Height

	start := zStart * planeLen
	end := zEnd * planeLen
	for i := start; i < end; i++ {
		cellID := cells.Data[i]
		nucleusID := nuclei.Data[i]
		if cellID > 0 {
			st.CellCounts[cellID]++
		}
		if nucleusID > 0 {
			st.NucleiCounts[nucleusID]++
		}
		if cellID > 0 && nucleusID > 0 {
			st.Overlap[Pair{Cell: cellID, Nucleus: nucleusID}]++
		}
	}
	return st
}
