package overlap

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"segcorrect/pkg/volume"
)

// QuantileKeepMask filters a count array by quantiles: the returned
// mask is true where the value lies strictly between the qLow and
// qHigh quantiles of the whole array. It is used to drop abnormally
// small and abnormally large nuclei before the under-segmentation
// decision. Requires 0 <= qLow < qHigh <= 1.
func QuantileKeepMask(counts []int64, qLow, qHigh float64) ([]bool, error) {
	if qLow < 0 || qLow > 1 {
		return nil, &volume.InvalidThresholdError{Param: "q_low", Value: qLow, Allowed: "[0,1]"}
	}
	if qHigh < 0 || qHigh > 1 {
		return nil, &volume.InvalidThresholdError{Param: "q_high", Value: qHigh, Allowed: "[0,1]"}
	}
	if qLow >= qHigh {
		return nil, &volume.InvalidThresholdError{Param: "q_low", Value: qLow, Allowed: "q_low < q_high"}
	}

	sorted := make([]float64, len(counts))
	for i, n := range counts {
		sorted[i] = float64(n)
	}
	sort.Float64s(sorted)

	low := stat.Quantile(qLow, stat.LinInterp, sorted, nil)
	high := stat.Quantile(qHigh, stat.LinInterp, sorted, nil)

	mask := make([]bool, len(counts))
	for i, n := range counts {
		v := float64(n)
		mask[i] = v > low && v < high
	}
	return mask, nil
}
