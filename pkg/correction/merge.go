package correction

import (
	"sort"

	"segcorrect/pkg/volume"
)

// MergeOverSegmented relabels each over-segmented cell group to a
// single representative label: the lowest qualifying cell id of the
// record. Every other qualifying id is rewritten wherever it appears
// in the volume, not just inside the nucleus footprint. If nuclei is
// non-nil, only records for those nucleus ids are applied.
//
// The relabeling assignment is snapshotted from all records before any
// voxel is written and applied in one pass, so every merge decision
// reads the volume as it stood before the pass started and merges
// cannot cascade within a pass. Records are folded into the assignment
// in ascending nucleus id order; a cell claimed by two records keeps
// the later record's representative.
//
// Returns the number of labels merged away.
func MergeOverSegmented(seg *volume.LabelVolume, records map[int32]OverSegmentation, nuclei []int32) int {
	var allowed map[int32]bool
	if nuclei != nil {
		allowed = make(map[int32]bool, len(nuclei))
		for _, n := range nuclei {
			allowed[n] = true
		}
	}

	order := make([]int32, 0, len(records))
	for n := range records {
		order = append(order, n)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	relabel := make(map[int32]int32)
	for _, n := range order {
		if allowed != nil && !allowed[n] {
			continue
		}
		rec := records[n]
		representative := rec.MergeCells[0]
		for _, cell := range rec.MergeCells[1:] {
			relabel[cell] = representative
		}
	}

	if len(relabel) == 0 {
		return 0
	}
	for i, l := range seg.Data {
		if target, ok := relabel[l]; ok {
			seg.Data[i] = target
		}
	}
	return len(relabel)
}
