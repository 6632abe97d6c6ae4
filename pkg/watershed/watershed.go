// Package watershed implements the seeded flooding primitive: regions
// grow outward from labeled seed voxels along ascending cost until the
// volume is partitioned. A small compactness penalty adds the distance
// to the originating seed voxel to the flooding priority, discouraging
// irregular shapes when the cost surface is flat.
package watershed

import (
	"container/heap"
	"math"

	"segcorrect/pkg/volume"
)

// Flood grows the non-zero labels in seeds outward over the cost map
// and returns the resulting label map, same shape as the inputs.
// Voxels not reachable from any seed (possible only in a volume
// with no seeds at all) stay 0. Fails with a ShapeMismatchError when
// cost and seeds differ in shape.
func Flood(cost *volume.FloatVolume, seeds *volume.LabelVolume, compactness float64) (*volume.LabelVolume, error) {
	if err := volume.CheckShapes(cost.Shape, seeds.Shape); err != nil {
		return nil, err
	}

	s := cost.Shape
	out := volume.NewLabelVolume(s.Width, s.Height, s.Depth)

	q := &floodQueue{}
	heap.Init(q)
	var order int64

	// Seed voxels are labeled immediately and enqueued in scan order
	// so equal-priority fronts advance deterministically.
	i := 0
	for z := 0; z < s.Depth; z++ {
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				if label := seeds.Data[i]; label > 0 {
					out.Data[i] = label
					heap.Push(q, floodItem{
						priority: cost.Data[i],
						order:    order,
						x:        x,
						y:        y,
						z:        z,
						originX:  x,
						originY:  y,
						originZ:  z,
						label:    label,
					})
					order++
				}
				i++
			}
		}
	}

	neighbors := [6][3]int{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}

	// A voxel may be enqueued by several fronts; the cheapest entry
	// pops first and claims it, later entries for it are dropped.
	for q.Len() > 0 {
		it := heap.Pop(q).(floodItem)
		idx := s.Index(it.x, it.y, it.z)
		if out.Data[idx] == 0 {
			out.Data[idx] = it.label
		} else if out.Data[idx] != it.label {
			continue
		}

		for _, d := range neighbors {
			nx, ny, nz := it.x+d[0], it.y+d[1], it.z+d[2]
			if nx < 0 || nx >= s.Width || ny < 0 || ny >= s.Height || nz < 0 || nz >= s.Depth {
				continue
			}
			ni := s.Index(nx, ny, nz)
			if out.Data[ni] != 0 {
				continue
			}

			priority := cost.Data[ni]
			if compactness > 0 {
				dx := float64(nx - it.originX)
				dy := float64(ny - it.originY)
				dz := float64(nz - it.originZ)
				priority += compactness * math.Sqrt(dx*dx+dy*dy+dz*dz)
			}
			heap.Push(q, floodItem{
				priority: priority,
				order:    order,
				x:        nx,
				y:        ny,
				z:        nz,
				originX:  it.originX,
				originY:  it.originY,
				originZ:  it.originZ,
				label:    it.label,
			})
			order++
		}
	}

	return out, nil
}

type floodItem struct {
	priority float64
	order    int64
	x, y, z  int

	// origin is the seed voxel this flooding front started from,
	// used for the compactness distance penalty.
	originX, originY, originZ int
	label                     int32
}

type floodQueue []floodItem

func (q floodQueue) Len() int { return len(q) }

func (q floodQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].order < q[j].order
}

func (q floodQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *floodQueue) Push(x interface{}) {
	*q = append(*q, x.(floodItem))
}

func (q *floodQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
