// Package correction repairs voxel-level errors in a cell segmentation
// by cross-referencing it against a trusted nuclei segmentation of the
// same volume. Cells spanning two nuclei are split by seeded flooding;
// cell groups covering one nucleus are merged to a single label.
package correction

import (
	"sort"

	"segcorrect/pkg/overlap"
	"segcorrect/pkg/volume"
)

// OverSegmentation describes one nucleus whose voxels are claimed by
// multiple cell labels. Cells holds every overlapping cell id and
// Ratios the matching overlap fractions relative to the nucleus size;
// MergeCells is the subset whose fraction exceeds the merge threshold,
// sorted ascending.
type OverSegmentation struct {
	Nucleus         int32
	Cells           []int32
	Ratios          []float64
	MergeCells      []int32
	IsOverSegmented bool
}

// UnderSegmentation describes one cell label that contains multiple
// nuclei. Nuclei holds every overlapping nucleus id and Ratios the
// overlap fractions relative to each nucleus's own size; SplitNuclei
// is the subset exceeding the split threshold and passing the nuclei
// size filter, sorted ascending.
type UnderSegmentation struct {
	Cell             int32
	Nuclei           []int32
	Ratios           []float64
	SplitNuclei      []int32
	IsUnderSegmented bool
}

// FindOverSegmented classifies each nucleus with any overlap: a cell
// qualifies when its overlap fraction of the nucleus exceeds
// thresholdMerge, and the nucleus is over-segmented when two or more
// cells qualify. Only over-segmented nuclei appear in the result.
// Nuclei with zero voxel count are skipped.
func FindOverSegmented(st *overlap.Stats, thresholdMerge float64) (map[int32]OverSegmentation, error) {
	if thresholdMerge <= 0 || thresholdMerge >= 1 {
		return nil, &volume.InvalidThresholdError{Param: "threshold_merge", Value: thresholdMerge, Allowed: "(0,1)"}
	}

	byNucleus := make(map[int32][]int32)
	for pair := range st.Overlap {
		byNucleus[pair.Nucleus] = append(byNucleus[pair.Nucleus], pair.Cell)
	}

	records := make(map[int32]OverSegmentation)
	for nucleus, cells := range byNucleus {
		size := st.NucleiCounts[nucleus]
		if size == 0 {
			continue
		}
		sort.Slice(cells, func(i, j int) bool { return cells[i] < cells[j] })

		ratios := make([]float64, len(cells))
		var qualifying []int32
		for i, cell := range cells {
			ratios[i] = float64(st.OverlapCount(cell, nucleus)) / float64(size)
			if ratios[i] > thresholdMerge {
				qualifying = append(qualifying, cell)
			}
		}

		if len(qualifying) > 1 {
			records[nucleus] = OverSegmentation{
				Nucleus:         nucleus,
				Cells:           cells,
				Ratios:          ratios,
				MergeCells:      qualifying,
				IsOverSegmented: true,
			}
		}
	}
	return records, nil
}

// FindUnderSegmented classifies each cell with any overlap: a nucleus
// qualifies when its overlap fraction (relative to the nucleus's own
// size) exceeds thresholdSplit and its size passes the quantile keep
// mask over all nuclei sizes; the cell is under-segmented when two or
// more nuclei qualify. Only under-segmented cells appear in the
// result. Nuclei with zero voxel count are skipped.
//
// The fraction is normalized by the nucleus size in both passes: the
// nuclei segmentation is the trusted reference, so a cell's own size
// is irrelevant to the decision.
func FindUnderSegmented(st *overlap.Stats, thresholdSplit, qLow, qHigh float64) (map[int32]UnderSegmentation, error) {
	if thresholdSplit <= 0 || thresholdSplit >= 1 {
		return nil, &volume.InvalidThresholdError{Param: "threshold_split", Value: thresholdSplit, Allowed: "(0,1)"}
	}
	keep, err := overlap.QuantileKeepMask(st.NucleiCounts, qLow, qHigh)
	if err != nil {
		return nil, err
	}

	byCell := make(map[int32][]int32)
	for pair := range st.Overlap {
		byCell[pair.Cell] = append(byCell[pair.Cell], pair.Nucleus)
	}

	records := make(map[int32]UnderSegmentation)
	for cell, nuclei := range byCell {
		sort.Slice(nuclei, func(i, j int) bool { return nuclei[i] < nuclei[j] })

		ids := make([]int32, 0, len(nuclei))
		ratios := make([]float64, 0, len(nuclei))
		var qualifying []int32
		for _, nucleus := range nuclei {
			size := st.NucleiCounts[nucleus]
			if size == 0 {
				continue
			}
			r := float64(st.OverlapCount(cell, nucleus)) / float64(size)
			ids = append(ids, nucleus)
			ratios = append(ratios, r)
			if r > thresholdSplit && keep[nucleus] {
				qualifying = append(qualifying, nucleus)
			}
		}

		if len(qualifying) > 1 {
			records[cell] = UnderSegmentation{
				Cell:             cell,
				Nuclei:           ids,
				Ratios:           ratios,
				SplitNuclei:      qualifying,
				IsUnderSegmented: true,
			}
		}
	}
	return records, nil
}
