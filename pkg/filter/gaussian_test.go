package filter

import (
	"math"
	"testing"

	"segcorrect/pkg/volume"
)

// TestGaussianConstant verifies that a constant volume is unchanged:
// the kernel is normalized and boundaries are reflected, so no mass
// enters or leaves.
func TestGaussianConstant(t *testing.T) {
	v := volume.NewFloatVolume(6, 5, 4)
	for i := range v.Data {
		v.Data[i] = 3.0
	}

	out := Gaussian(v, 2.0)
	for i, x := range out.Data {
		if math.Abs(x-3.0) > 1e-9 {
			t.Fatalf("Voxel %d: got %g, want 3.0", i, x)
		}
	}
}

// TestGaussianImpulse verifies mass conservation and symmetry for a
// centered impulse whose kernel support stays inside the volume.
func TestGaussianImpulse(t *testing.T) {
	v := volume.NewFloatVolume(9, 9, 9)
	v.Set(4, 4, 4, 1.0)

	out := Gaussian(v, 1.0)

	sum := 0.0
	for _, x := range out.Data {
		sum += x
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Smoothed impulse mass: got %g, want 1.0", sum)
	}

	center := out.At(4, 4, 4)
	for _, x := range out.Data {
		if x > center {
			t.Fatal("Impulse center should remain the maximum")
		}
	}

	if math.Abs(out.At(3, 4, 4)-out.At(5, 4, 4)) > 1e-12 {
		t.Error("Smoothing should be symmetric about the impulse")
	}
	if math.Abs(out.At(4, 2, 4)-out.At(4, 6, 4)) > 1e-12 {
		t.Error("Smoothing should be symmetric about the impulse")
	}
}

// TestGaussianZeroSigma verifies that sigma <= 0 returns an unmodified
// copy.
func TestGaussianZeroSigma(t *testing.T) {
	v := volume.NewFloatVolume(3, 3, 3)
	for i := range v.Data {
		v.Data[i] = float64(i)
	}

	out := Gaussian(v, 0)
	for i := range v.Data {
		if out.Data[i] != v.Data[i] {
			t.Fatalf("Voxel %d changed: got %g, want %g", i, out.Data[i], v.Data[i])
		}
	}

	out.Data[0] = -1
	if v.Data[0] == -1 {
		t.Error("Gaussian should return an independent copy")
	}
}
