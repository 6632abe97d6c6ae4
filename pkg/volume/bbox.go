package volume

// BoundingBox is an axis-aligned box of voxels, half-open on every
// axis: a voxel (x, y, z) is inside when X0 <= x < X1 and so on.
type BoundingBox struct {
	X0, X1 int
	Y0, Y1 int
	Z0, Z1 int
}

// Dx returns the box extent along the x axis.
func (b BoundingBox) Dx() int { return b.X1 - b.X0 }

// Dy returns the box extent along the y axis.
func (b BoundingBox) Dy() int { return b.Y1 - b.Y0 }

// Dz returns the box extent along the z axis.
func (b BoundingBox) Dz() int { return b.Z1 - b.Z0 }

// Contains reports whether voxel (x, y, z) lies inside the box.
func (b BoundingBox) Contains(x, y, z int) bool {
	return x >= b.X0 && x < b.X1 &&
		y >= b.Y0 && y < b.Y1 &&
		z >= b.Z0 && z < b.Z1
}

// MaskBounds computes the bounding box around the true voxels of a
// mask, padded by tolerance voxels on each side and clipped to the
// volume. The upper bound on each axis is raised to at least lower+1
// so the box always has non-zero extent, even for a single-slice mask.
// Returns an EmptyMaskError when the mask selects no voxels.
func MaskBounds(m *Mask, tolerance int) (BoundingBox, error) {
	s := m.Shape
	minX, minY, minZ := s.Width, s.Height, s.Depth
	maxX, maxY, maxZ := -1, -1, -1

	i := 0
	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				if m.Bits[i] {
					if x < minX {
						minX = x
					}
					if x > maxX {
						maxX = x
					}
					if y < minY {
						minY = y
					}
					if y > maxY {
						maxY = y
					}
					if z < minZ {
						minZ = z
					}
					if z > maxZ {
						maxZ = z
					}
				}
				i++
			}
		}
	}

	if maxX < 0 {
		return BoundingBox{}, &EmptyMaskError{}
	}

	x0, x1 := clipAxis(minX, maxX, tolerance, s.Width)
	y0, y1 := clipAxis(minY, maxY, tolerance, s.Height)
	z0, z1 := clipAxis(minZ, maxZ, tolerance, s.Depth)
	return BoundingBox{X0: x0, X1: x1, Y0: y0, Y1: y1, Z0: z0, Z1: z1}, nil
}

// clipAxis pads [lo, hi] by the tolerance, clips the result to
// [0, size] and floors the extent to 1.
func clipAxis(lo, hi, tolerance, size int) (int, int) {
	lower := lo - tolerance
	if lower < 0 {
		lower = 0
	}
	upper := hi + tolerance
	if upper > size {
		upper = size
	}
	if upper-lower < 1 {
		upper = lower + 1
	}
	return lower, upper
}
