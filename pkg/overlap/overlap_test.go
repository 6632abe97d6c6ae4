package overlap

import (
	"errors"
	"testing"

	"segcorrect/pkg/volume"
)

// fillPattern writes a deterministic label pattern so that parallel
// and serial passes can be compared over a non-trivial volume.
func fillPattern(v *volume.LabelVolume, mod int32, stride int) {
	for i := range v.Data {
		v.Data[i] = int32(i/stride) % mod
	}
}

// TestCountBasic verifies per-label counts and the overlap matrix on a
// hand-built volume.
func TestCountBasic(t *testing.T) {
	cells := volume.NewLabelVolume(4, 1, 1)
	nuclei := volume.NewLabelVolume(4, 1, 1)
	copy(cells.Data, []int32{1, 1, 2, 0})
	copy(nuclei.Data, []int32{5, 0, 5, 5})

	st, err := NewCounter(1).Count(cells, nuclei)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	if st.CellCounts[1] != 2 || st.CellCounts[2] != 1 {
		t.Errorf("Cell counts wrong: got %v", st.CellCounts)
	}
	if st.NucleiCounts[5] != 3 {
		t.Errorf("Nuclei counts wrong: got %v", st.NucleiCounts)
	}
	if st.OverlapCount(1, 5) != 1 {
		t.Errorf("Overlap(1,5): got %d, want 1", st.OverlapCount(1, 5))
	}
	if st.OverlapCount(2, 5) != 1 {
		t.Errorf("Overlap(2,5): got %d, want 1", st.OverlapCount(2, 5))
	}
	if st.OverlapCount(1, 1) != 0 {
		t.Errorf("Overlap(1,1): got %d, want 0", st.OverlapCount(1, 1))
	}
}

// TestCountInvariants verifies that overlap row and column sums never
// exceed the corresponding label sizes.
func TestCountInvariants(t *testing.T) {
	cells := volume.NewLabelVolume(8, 6, 5)
	nuclei := volume.NewLabelVolume(8, 6, 5)
	fillPattern(cells, 5, 3)
	fillPattern(nuclei, 4, 7)

	st, err := NewCounter(2).Count(cells, nuclei)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	rowSums := make(map[int32]int64)
	colSums := make(map[int32]int64)
	for pair, n := range st.Overlap {
		rowSums[pair.Cell] += n
		colSums[pair.Nucleus] += n
	}
	for cell, sum := range rowSums {
		if sum > st.CellCounts[cell] {
			t.Errorf("Cell %d: overlap row sum %d exceeds count %d", cell, sum, st.CellCounts[cell])
		}
	}
	for nucleus, sum := range colSums {
		if sum > st.NucleiCounts[nucleus] {
			t.Errorf("Nucleus %d: overlap column sum %d exceeds count %d", nucleus, sum, st.NucleiCounts[nucleus])
		}
	}
}

// TestCountParallelMatchesSerial verifies that the reduction over
// worker partials reproduces the single-worker result exactly.
func TestCountParallelMatchesSerial(t *testing.T) {
	cells := volume.NewLabelVolume(7, 5, 8)
	nuclei := volume.NewLabelVolume(7, 5, 8)
	fillPattern(cells, 6, 4)
	fillPattern(nuclei, 3, 5)

	serial, err := NewCounter(1).Count(cells, nuclei)
	if err != nil {
		t.Fatalf("Serial count failed: %v", err)
	}
	parallel, err := NewCounter(4).Count(cells, nuclei)
	if err != nil {
		t.Fatalf("Parallel count failed: %v", err)
	}

	for i := range serial.CellCounts {
		if serial.CellCounts[i] != parallel.CellCounts[i] {
			t.Errorf("Cell count %d differs: serial %d, parallel %d",
				i, serial.CellCounts[i], parallel.CellCounts[i])
		}
	}
	for i := range serial.NucleiCounts {
		if serial.NucleiCounts[i] != parallel.NucleiCounts[i] {
			t.Errorf("Nuclei count %d differs: serial %d, parallel %d",
				i, serial.NucleiCounts[i], parallel.NucleiCounts[i])
		}
	}
	if len(serial.Overlap) != len(parallel.Overlap) {
		t.Fatalf("Overlap pair counts differ: serial %d, parallel %d",
			len(serial.Overlap), len(parallel.Overlap))
	}
	for pair, n := range serial.Overlap {
		if parallel.Overlap[pair] != n {
			t.Errorf("Overlap %+v differs: serial %d, parallel %d", pair, n, parallel.Overlap[pair])
		}
	}
}

// TestCountShapeMismatch verifies that differing volume shapes are
// rejected.
func TestCountShapeMismatch(t *testing.T) {
	cells := volume.NewLabelVolume(4, 4, 4)
	nuclei := volume.NewLabelVolume(4, 4, 3)

	_, err := NewCounter(1).Count(cells, nuclei)
	if err == nil {
		t.Fatal("Expected shape mismatch error")
	}
	var mismatch *volume.ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("Expected ShapeMismatchError, got %T", err)
	}
}

// TestCountCapacityCeiling verifies that an oversized label range is
// rejected instead of allocating unbounded statistics arrays.
func TestCountCapacityCeiling(t *testing.T) {
	cells := volume.NewLabelVolume(2, 1, 1)
	nuclei := volume.NewLabelVolume(2, 1, 1)
	cells.Data[0] = 10

	c := NewCounter(1)
	c.SetMaxLabels(4)
	_, err := c.Count(cells, nuclei)
	if err == nil {
		t.Fatal("Expected capacity error")
	}
	var capErr *volume.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected CapacityExceededError, got %T", err)
	}
	if capErr.Labels != 11 || capErr.Limit != 4 {
		t.Errorf("Expected 11 labels over limit 4, got %d over %d", capErr.Labels, capErr.Limit)
	}
}
