// Package filter implements the isotropic gaussian smoothing primitive
// used to suppress spurious local minima in a flooding cost map before
// watershed segmentation.
package filter

import (
	"math"

	"segcorrect/pkg/volume"
)

// Gaussian returns a smoothed copy of the input volume. The filter is
// separable: a 1D normalized gaussian kernel of the given standard
// deviation is convolved along each axis in turn, with reflected
// boundaries. sigma <= 0 returns an unmodified copy.
func Gaussian(v *volume.FloatVolume, sigma float64) *volume.FloatVolume {
	out := &volume.FloatVolume{
		Data:  make([]float64, len(v.Data)),
		Shape: v.Shape,
	}
	copy(out.Data, v.Data)
	if sigma <= 0 {
		return out
	}

	kernel := gaussianKernel(sigma)
	tmp := make([]float64, len(v.Data))

	convolveAxis(out.Data, tmp, v.Shape, 0, kernel)
	convolveAxis(tmp, out.Data, v.Shape, 1, kernel)
	convolveAxis(out.Data, tmp, v.Shape, 2, kernel)
	copy(out.Data, tmp)
	return out
}

// gaussianKernel builds a normalized kernel truncated at 4 standard
// deviations, matching the common scientific-imaging default.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveAxis convolves src along the given axis (0=x, 1=y, 2=z)
// into dst. Samples past the ends are reflected.
func convolveAxis(src, dst []float64, s volume.Shape, axis int, kernel []float64) {
	radius := len(kernel) / 2

	var length, stride int
	switch axis {
	case 0:
		length, stride = s.Width, 1
	case 1:
		length, stride = s.Height, s.Width
	default:
		length, stride = s.Depth, s.Width*s.Height
	}

	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				base := s.Index(x, y, z)
				var pos int
				switch axis {
				case 0:
					pos = x
				case 1:
					pos = y
				default:
					pos = z
				}

				acc := 0.0
				for k := -radius; k <= radius; k++ {
					p := reflect(pos+k, length)
					acc += kernel[k+radius] * src[base+(p-pos)*stride]
				}
				dst[base] = acc
			}
		}
	}
}

// reflect maps an out-of-range coordinate back into [0, length) by
// mirroring about the array edges.
func reflect(i, length int) int {
	if length == 1 {
		return 0
	}
	period := 2 * (length - 1)
	i = ((i % period) + period) % period
	if i >= length {
		i = period - i
	}
	return i
}
