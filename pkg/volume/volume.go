// Package volume provides the in-memory 3D array types shared by the
// segmentation correction pipeline: integer label volumes, float volumes
// used as flooding cost maps, and boolean masks. All three store their
// voxels in a flat backing slice in z-major order (index = z*W*H + y*W + x)
// so that whole-volume passes are a single loop and plane ranges can be
// handed to parallel workers without copying.
package volume

// Shape describes the voxel dimensions of a volume.
type Shape struct {
	Width  int
	Height int
	Depth  int
}

// Len returns the total number of voxels.
func (s Shape) Len() int {
	return s.Width * s.Height * s.Depth
}

// Index returns the flat index of voxel (x, y, z).
func (s Shape) Index(x, y, z int) int {
	return z*s.Width*s.Height + y*s.Width + x
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	return s.Width == o.Width && s.Height == o.Height && s.Depth == o.Depth
}

// LabelVolume is a 3D segmentation: every voxel holds a non-negative
// segment id, with 0 meaning background. Label ids need not be
// contiguous.
type LabelVolume struct {
	Data  []int32
	Shape Shape
}

// NewLabelVolume allocates a zeroed label volume with the given dimensions.
func NewLabelVolume(width, height, depth int) *LabelVolume {
	s := Shape{Width: width, Height: height, Depth: depth}
	return &LabelVolume{
		Data:  make([]int32, s.Len()),
		Shape: s,
	}
}

// At returns the label at voxel (x, y, z).
func (v *LabelVolume) At(x, y, z int) int32 {
	return v.Data[v.Shape.Index(x, y, z)]
}

// Set stores a label at voxel (x, y, z).
func (v *LabelVolume) Set(x, y, z int, label int32) {
	v.Data[v.Shape.Index(x, y, z)] = label
}

// MaxLabel scans the volume and returns the largest label id present,
// or 0 for an all-background volume.
func (v *LabelVolume) MaxLabel() int32 {
	var max int32
	for _, l := range v.Data {
		if l > max {
			max = l
		}
	}
	return max
}

// Clone returns an independent deep copy of the volume.
func (v *LabelVolume) Clone() *LabelVolume {
	data := make([]int32, len(v.Data))
	copy(data, v.Data)
	return &LabelVolume{Data: data, Shape: v.Shape}
}

// MaskOf returns a mask selecting every voxel whose label is in ids.
func (v *LabelVolume) MaskOf(ids []int32) *Mask {
	want := make(map[int32]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	m := NewMask(v.Shape.Width, v.Shape.Height, v.Shape.Depth)
	for i, l := range v.Data {
		if want[l] {
			m.Bits[i] = true
		}
	}
	return m
}

// FloatVolume is a 3D array of float64 samples, used for boundary
// probability maps and smoothed flooding costs.
type FloatVolume struct {
	Data  []float64
	Shape Shape
}

// NewFloatVolume allocates a zeroed float volume with the given dimensions.
func NewFloatVolume(width, height, depth int) *FloatVolume {
	s := Shape{Width: width, Height: height, Depth: depth}
	return &FloatVolume{
		Data:  make([]float64, s.Len()),
		Shape: s,
	}
}

// Ones returns a float volume with every voxel set to 1. It is the
// default flooding cost when no boundary map is supplied: uniform cost
// means only seed geometry drives the partition.
func Ones(width, height, depth int) *FloatVolume {
	v := NewFloatVolume(width, height, depth)
	for i := range v.Data {
		v.Data[i] = 1
	}
	return v
}

// At returns the sample at voxel (x, y, z).
func (v *FloatVolume) At(x, y, z int) float64 {
	return v.Data[v.Shape.Index(x, y, z)]
}

// Set stores a sample at voxel (x, y, z).
func (v *FloatVolume) Set(x, y, z int, value float64) {
	v.Data[v.Shape.Index(x, y, z)] = value
}

// Mask is a boolean selection over a volume's voxels.
type Mask struct {
	Bits  []bool
	Shape Shape
}

// NewMask allocates an all-false mask with the given dimensions.
func NewMask(width, height, depth int) *Mask {
	s := Shape{Width: width, Height: height, Depth: depth}
	return &Mask{
		Bits:  make([]bool, s.Len()),
		Shape: s,
	}
}

// At reports whether voxel (x, y, z) is selected.
func (m *Mask) At(x, y, z int) bool {
	return m.Bits[m.Shape.Index(x, y, z)]
}

// Any reports whether the mask selects at least one voxel.
func (m *Mask) Any() bool {
	for _, b := range m.Bits {
		if b {
			return true
		}
	}
	return false
}

// CheckShapes verifies that every shape matches the first one and
// returns a ShapeMismatchError on the first difference.
func CheckShapes(want Shape, others ...Shape) error {
	for _, s := range others {
		if !want.Equal(s) {
			return &ShapeMismatchError{Want: want, Got: s}
		}
	}
	return nil
}
