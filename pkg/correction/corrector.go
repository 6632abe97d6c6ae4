package correction

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"segcorrect/pkg/overlap"
	"segcorrect/pkg/volume"
)

// Params holds the correction parameters.
type Params struct {
	// ThresholdMerge is the minimum overlap fraction of a nucleus a
	// cell must claim to take part in a merge. In (0,1).
	ThresholdMerge float64

	// ThresholdSplit is the minimum overlap fraction of a nucleus
	// inside a cell for the nucleus to count as fully contained. In (0,1).
	ThresholdSplit float64

	// QuantileLow and QuantileHigh bound the nuclei size filter:
	// nuclei outside the strict quantile band are ignored by the
	// under-segmentation decision.
	QuantileLow  float64
	QuantileHigh float64

	// PixelTolerance pads the bounding box around a cell before
	// re-segmentation.
	PixelTolerance int

	// Compactness and SmoothingSigma tune the seeded flooding.
	Compactness    float64
	SmoothingSigma float64

	// Workers bounds parallelism in the counting and split passes.
	Workers int

	// MaxLabels caps the dense per-label statistics arrays.
	MaxLabels int
}

// DefaultParams returns the parameter set used when nothing is
// configured.
func DefaultParams() Params {
	return Params{
		ThresholdMerge: 0.33,
		ThresholdSplit: 0.66,
		QuantileLow:    0.3,
		QuantileHigh:   0.99,
		PixelTolerance: 0,
		Compactness:    0.001,
		SmoothingSigma: 2.0,
		Workers:        runtime.NumCPU(),
		MaxLabels:      overlap.DefaultMaxLabels,
	}
}

// Corrector runs the full correction pipeline:
// measure overlap, merge over-segmented cell groups, re-measure,
// split under-segmented cells. No stage is re-entered.
type Corrector struct {
	params Params
	log    zerolog.Logger
}

// NewCorrector returns a corrector with the given parameters. Logging
// is disabled until SetLogger is called.
func NewCorrector(params Params) *Corrector {
	return &Corrector{
		params: params,
		log:    zerolog.Nop(),
	}
}

// SetLogger attaches a structured logger for stage progress.
func (c *Corrector) SetLogger(log zerolog.Logger) {
	c.log = log
}

// Run corrects the cell segmentation against the nuclei segmentation
// and returns the corrected volume. The input volumes are never
// mutated; the result is a fresh volume. boundary is an optional
// flooding cost map of the same shape; nil selects a uniform map of
// ones so only seed geometry drives the splits.
//
// If a stage fails, Run returns the error. The caller's inputs are
// untouched in every case; when the split stage fails partway, the
// partially corrected volume (merges plus the splits committed before
// the failure) is returned alongside the error, since each committed
// split is individually valid.
func (c *Corrector) Run(cells, nuclei *volume.LabelVolume, boundary *volume.FloatVolume) (*volume.LabelVolume, error) {
	if err := volume.CheckShapes(cells.Shape, nuclei.Shape); err != nil {
		return nil, err
	}
	if boundary == nil {
		boundary = volume.Ones(cells.Shape.Width, cells.Shape.Height, cells.Shape.Depth)
	} else if err := volume.CheckShapes(cells.Shape, boundary.Shape); err != nil {
		return nil, err
	}

	seg := cells.Clone()
	counter := overlap.NewCounter(c.params.Workers)
	if c.params.MaxLabels > 0 {
		counter.SetMaxLabels(c.params.MaxLabels)
	}

	// Measure the overlap between cells and nuclei a first time.
	st, err := counter.Count(seg, nuclei)
	if err != nil {
		return nil, fmt.Errorf("measuring overlap: %w", err)
	}

	overRecs, err := FindOverSegmented(st, c.params.ThresholdMerge)
	if err != nil {
		return nil, fmt.Errorf("finding over-segmented nuclei: %w", err)
	}
	merged := MergeOverSegmented(seg, overRecs, nil)
	c.log.Info().
		Int("nuclei", len(overRecs)).
		Int("merged_labels", merged).
		Msg("merged over-segmented cells")

	// Measure again: merges change the cell label population.
	st, err = counter.Count(seg, nuclei)
	if err != nil {
		return nil, fmt.Errorf("measuring overlap after merge: %w", err)
	}

	underRecs, err := FindUnderSegmented(st, c.params.ThresholdSplit, c.params.QuantileLow, c.params.QuantileHigh)
	if err != nil {
		return nil, fmt.Errorf("finding under-segmented cells: %w", err)
	}

	resplitter := &Resplitter{
		Nuclei:         nuclei,
		Boundary:       boundary,
		Compactness:    c.params.Compactness,
		SmoothingSigma: c.params.SmoothingSigma,
		Tolerance:      c.params.PixelTolerance,
		Workers:        c.params.Workers,
	}
	split, err := resplitter.SplitUnderSegmented(seg, underRecs, nil)
	if err != nil {
		// Splits commit per cell; the ones already written are
		// individually valid, so the partially corrected volume is
		// returned alongside the error.
		return seg, fmt.Errorf("splitting under-segmented cells: %w", err)
	}
	c.log.Info().
		Int("candidates", len(underRecs)).
		Int("split_cells", split).
		Msg("split under-segmented cells")

	return seg, nil
}
