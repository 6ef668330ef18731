package physics

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// maxGridSpan is the most cells one body may cover. Bigger bodies skip the
// grid and are checked against everything.
const maxGridSpan = 4096

type aabb struct {
	min mgl64.Vec3
	max mgl64.Vec3
}

func (o obb) bounds() aabb {
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ext[i] += math.Abs(o.axes[j][i]) * o.halfExtents[j]
		}
	}
	return aabb{min: o.pos.Sub(ext), max: o.pos.Add(ext)}
}

func (b aabb) grow(margin float64) aabb {
	m := mgl64.Vec3{margin, margin, margin}
	return aabb{min: b.min.Sub(m), max: b.max.Add(m)}
}

// spatialGrid is a uniform hash grid of body indices, rebuilt every step.
type spatialGrid struct {
	cellSize  float64
	cells     map[uint64][]int
	oversized []int
	seen      map[int]struct{}
}

func newSpatialGrid() *spatialGrid {
	return &spatialGrid{
		cells: make(map[uint64][]int),
		seen:  make(map[int]struct{}),
	}
}

func (grid *spatialGrid) reset(cellSize float64) {
	grid.cellSize = cellSize
	clear(grid.cells)
	grid.oversized = grid.oversized[:0]
}

func (grid *spatialGrid) span(box aabb) (lo, hi [3]int, cells int) {
	cells = 1
	for i := 0; i < 3; i++ {
		lo[i] = grid.cellIndex(box.min[i])
		hi[i] = grid.cellIndex(box.max[i])
		cells *= hi[i] - lo[i] + 1
		if cells > maxGridSpan || cells <= 0 {
			return lo, hi, maxGridSpan + 1
		}
	}
	return lo, hi, cells
}

func (grid *spatialGrid) insert(idx int, box aabb) {
	lo, hi, cells := grid.span(box)
	if cells > maxGridSpan {
		grid.oversized = append(grid.oversized, idx)
		return
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				key := hashKey(x, y, z)
				grid.cells[key] = append(grid.cells[key], idx)
			}
		}
	}
}

// query appends to out the indices that may touch box, in ascending order.
func (grid *spatialGrid) query(box aabb, out []int) []int {
	clear(grid.seen)
	add := func(idx int) {
		if _, ok := grid.seen[idx]; !ok {
			grid.seen[idx] = struct{}{}
			out = append(out, idx)
		}
	}

	for _, idx := range grid.oversized {
		add(idx)
	}
	lo, hi, cells := grid.span(box)
	if cells > maxGridSpan {
		for _, list := range grid.cells {
			for _, idx := range list {
				add(idx)
			}
		}
	} else {
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					for _, idx := range grid.cells[hashKey(x, y, z)] {
						add(idx)
					}
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

func (grid *spatialGrid) cellIndex(v float64) int {
	return int(math.Floor(v / grid.cellSize))
}

func hashKey(x, y, z int) uint64 {
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return uint64(x*p1 ^ y*p2 ^ z*p3)
}
