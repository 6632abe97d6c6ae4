package correction

import (
	"errors"
	"testing"

	"segcorrect/pkg/volume"
)

// TestCorrectorMergesSplitNucleus runs the full pipeline on a nucleus
// split between two cells and verifies the pair collapses to the
// lower label while the inputs stay untouched.
func TestCorrectorMergesSplitNucleus(t *testing.T) {
	cells := volume.NewLabelVolume(8, 1, 1)
	nuclei := volume.NewLabelVolume(8, 1, 1)
	copy(cells.Data, []int32{1, 1, 1, 2, 2, 2, 2, 2})
	copy(nuclei.Data, []int32{1, 1, 1, 1, 1, 1, 0, 0})
	original := cells.Clone()

	params := DefaultParams()
	params.ThresholdMerge = 0.3
	params.QuantileLow = 0
	params.QuantileHigh = 1
	params.Workers = 1

	out, err := NewCorrector(params).Run(cells, nuclei, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i, l := range out.Data {
		if l != 1 {
			t.Errorf("Voxel %d: got %d, want 1", i, l)
		}
	}
	for i := range cells.Data {
		if cells.Data[i] != original.Data[i] {
			t.Fatal("Run must not mutate the input cell volume")
		}
	}
}

// TestCorrectorConsistentInputIsFixedPoint verifies idempotence on a
// segmentation already consistent with the nuclei: no merges, no
// splits, output equals input, and a second run reproduces it.
func TestCorrectorConsistentInputIsFixedPoint(t *testing.T) {
	cells := volume.NewLabelVolume(10, 1, 1)
	nuclei := volume.NewLabelVolume(10, 1, 1)
	for x := 0; x <= 3; x++ {
		cells.Set(x, 0, 0, 1)
	}
	for x := 5; x <= 8; x++ {
		cells.Set(x, 0, 0, 2)
	}
	nuclei.Set(1, 0, 0, 1)
	nuclei.Set(2, 0, 0, 1)
	nuclei.Set(6, 0, 0, 2)
	nuclei.Set(7, 0, 0, 2)

	params := DefaultParams()
	params.Workers = 1
	corrector := NewCorrector(params)

	out1, err := corrector.Run(cells, nuclei, nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	for i := range cells.Data {
		if out1.Data[i] != cells.Data[i] {
			t.Fatalf("Voxel %d changed on consistent input: got %d, want %d",
				i, out1.Data[i], cells.Data[i])
		}
	}

	out2, err := corrector.Run(out1, nuclei, nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	for i := range out1.Data {
		if out2.Data[i] != out1.Data[i] {
			t.Fatalf("Voxel %d changed on second run: got %d, want %d",
				i, out2.Data[i], out1.Data[i])
		}
	}
}

// TestCorrectorSplitThenStable runs the pipeline on an
// under-segmented cell and verifies the corrected volume is a fixed
// point of a second run with the same thresholds.
func TestCorrectorSplitThenStable(t *testing.T) {
	cells, nuclei := underSegScene()

	params := DefaultParams()
	params.ThresholdMerge = 0.6
	params.ThresholdSplit = 0.66
	params.QuantileLow = 0
	params.QuantileHigh = 1
	params.Workers = 2
	corrector := NewCorrector(params)

	preMax := cells.MaxLabel()
	out1, err := corrector.Run(cells, nuclei, nil)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// The doubly occupied cell was split into fresh labels.
	if out1.At(0, 0, 0) <= preMax || out1.At(6, 0, 0) <= preMax {
		t.Error("Expected new labels inside the split region")
	}
	if out1.At(0, 0, 0) == out1.At(6, 0, 0) {
		t.Error("The two nuclei should end up in different segments")
	}

	out2, err := corrector.Run(out1, nuclei, nil)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	for i := range out1.Data {
		if out2.Data[i] != out1.Data[i] {
			t.Fatalf("Voxel %d not stable: first %d, second %d", i, out1.Data[i], out2.Data[i])
		}
	}
}

// TestCorrectorShapeMismatch verifies input validation.
func TestCorrectorShapeMismatch(t *testing.T) {
	cells := volume.NewLabelVolume(4, 4, 4)
	nuclei := volume.NewLabelVolume(4, 4, 3)

	_, err := NewCorrector(DefaultParams()).Run(cells, nuclei, nil)
	if err == nil {
		t.Fatal("Expected shape mismatch error")
	}
	var mismatch *volume.ShapeMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("Expected ShapeMismatchError, got %T", err)
	}

	boundary := volume.Ones(4, 4, 2)
	_, err = NewCorrector(DefaultParams()).Run(cells, cells, boundary)
	if err == nil {
		t.Fatal("Expected shape mismatch error for boundary map")
	}
}

// TestCorrectorInvalidThreshold verifies that malformed parameters are
// reported instead of silently producing meaningless results.
func TestCorrectorInvalidThreshold(t *testing.T) {
	cells := volume.NewLabelVolume(2, 2, 2)
	nuclei := volume.NewLabelVolume(2, 2, 2)

	params := DefaultParams()
	params.ThresholdMerge = 1.5

	_, err := NewCorrector(params).Run(cells, nuclei, nil)
	if err == nil {
		t.Fatal("Expected invalid threshold error")
	}
	var invalid *volume.InvalidThresholdError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidThresholdError, got %T", err)
	}
}
