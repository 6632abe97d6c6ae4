package correction

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"segcorrect/pkg/filter"
	"segcorrect/pkg/volume"
	"segcorrect/pkg/watershed"
)

// Resplitter re-segments under-segmented cells: the region covered by
// a cell is partitioned by seeded flooding, one seed per qualifying
// nucleus, and rewritten with fresh labels above the volume's current
// maximum.
type Resplitter struct {
	// Nuclei is the trusted nuclei segmentation; seed regions are
	// taken from it. Never mutated.
	Nuclei *volume.LabelVolume

	// Boundary is the flooding cost map. Lower cost floods earlier.
	Boundary *volume.FloatVolume

	// Compactness penalizes distance from the seed during flooding,
	// discouraging irregular shapes on flat cost surfaces.
	Compactness float64

	// SmoothingSigma is the gaussian standard deviation applied to
	// the normalized cost crop before flooding.
	SmoothingSigma float64

	// Tolerance pads the bounding box around the target region.
	Tolerance int

	// Workers bounds the number of concurrent per-cell split
	// computations. Write-back is always serialized.
	Workers int
}

// splitResult is one computed re-segmentation, ready to commit.
type splitResult struct {
	cell   int32
	box    volume.BoundingBox
	mask   *volume.Mask        // cropped to box
	labels *volume.LabelVolume // cropped local labels, 1..seeds
	seeds  int32
	err    error
}

// SplitUnderSegmented applies the given under-segmentation records to
// the cell volume. If cells is non-nil, only records for those cell
// ids are applied. Each cell's replacement labels are computed
// independently (in parallel when Workers > 1) against the pre-split
// volume; results are then committed one by one in ascending cell id
// order, each batch offset past the volume's running maximum label so
// new ids never collide.
//
// Returns the number of cells split. A record whose cell id has
// vanished from the volume yields an EmptyMaskError; splits committed
// before the failing record remain in place.
func (r *Resplitter) SplitUnderSegmented(seg *volume.LabelVolume, records map[int32]UnderSegmentation, cells []int32) (int, error) {
	if err := volume.CheckShapes(seg.Shape, r.Nuclei.Shape, r.Boundary.Shape); err != nil {
		return 0, err
	}

	var allowed map[int32]bool
	if cells != nil {
		allowed = make(map[int32]bool, len(cells))
		for _, c := range cells {
			allowed[c] = true
		}
	}

	order := make([]int32, 0, len(records))
	for c := range records {
		if allowed != nil && !allowed[c] {
			continue
		}
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	if len(order) == 0 {
		return 0, nil
	}

	// Compute phase: every split reads the same pre-split volume.
	// Distinct cell labels never share voxels, so the masks are
	// disjoint even when bounding boxes overlap.
	results := make([]splitResult, len(order))
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(order) {
		workers = len(order)
	}

	tasks := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				results[i] = r.computeSplit(seg, records[order[i]])
			}
		}()
	}
	for i := range order {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	// Commit phase: serialized write-back in cell id order. Each
	// batch is offset past the running maximum so labels from
	// adjacent splits cannot collide.
	maxLabel := seg.MaxLabel()
	split := 0
	for _, res := range results {
		if res.err != nil {
			return split, res.err
		}
		offset := maxLabel + 1
		commitSplit(seg, res, offset)
		maxLabel = offset + res.seeds
		split++
	}
	return split, nil
}

// computeSplit re-segments the region covered by one record's cell id
// set: crop the cost map to the region's bounding box, normalize and
// smooth it, then flood from the qualifying nuclei.
func (r *Resplitter) computeSplit(seg *volume.LabelVolume, rec UnderSegmentation) splitResult {
	ids := []int32{rec.Cell}
	mask := seg.MaskOf(ids)
	box, err := volume.MaskBounds(mask, r.Tolerance)
	if err != nil {
		return splitResult{cell: rec.Cell, err: fmt.Errorf("splitting cell %d: %w", rec.Cell, err)}
	}

	bw, bh, bd := box.Dx(), box.Dy(), box.Dz()
	cost := volume.NewFloatVolume(bw, bh, bd)
	cropMask := volume.NewMask(bw, bh, bd)
	seeds := volume.NewLabelVolume(bw, bh, bd)

	seedValue := make(map[int32]int32, len(rec.SplitNuclei))
	for i, n := range rec.SplitNuclei {
		seedValue[n] = int32(i + 1)
	}

	for z := 0; z < bd; z++ {
		for y := 0; y < bh; y++ {
			for x := 0; x < bw; x++ {
				src := seg.Shape.Index(box.X0+x, box.Y0+y, box.Z0+z)
				dst := cost.Shape.Index(x, y, z)
				cost.Data[dst] = r.Boundary.Data[src]
				cropMask.Bits[dst] = mask.Bits[src]
				if v, ok := seedValue[r.Nuclei.Data[src]]; ok {
					seeds.Data[dst] = v
				}
			}
		}
	}

	// Normalize the cost crop to [0,1] and smooth it to suppress
	// spurious local minima before flooding.
	if max := floats.Max(cost.Data); max > 0 {
		floats.Scale(1/max, cost.Data)
	}
	smoothed := filter.Gaussian(cost, r.SmoothingSigma)

	labels, err := watershed.Flood(smoothed, seeds, r.Compactness)
	if err != nil {
		return splitResult{cell: rec.Cell, err: fmt.Errorf("splitting cell %d: %w", rec.Cell, err)}
	}

	return splitResult{
		cell:   rec.Cell,
		box:    box,
		mask:   cropMask,
		labels: labels,
		seeds:  int32(len(rec.SplitNuclei)),
	}
}

// commitSplit writes one computed re-segmentation back into the cell
// volume: inside the bounding box, voxels covered by the region mask
// take the offset flood label; everything else is left untouched.
func commitSplit(seg *volume.LabelVolume, res splitResult, offset int32) {
	box := res.box
	for z := 0; z < box.Dz(); z++ {
		for y := 0; y < box.Dy(); y++ {
			for x := 0; x < box.Dx(); x++ {
				i := res.labels.Shape.Index(x, y, z)
				if !res.mask.Bits[i] {
					continue
				}
				dst := seg.Shape.Index(box.X0+x, box.Y0+y, box.Z0+z)
				seg.Data[dst] = res.labels.Data[i] + offset
			}
		}
	}
}
