package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// contactEpsilon widens boxes when searching for contact corners.
const contactEpsilon = 0.01

type obb struct {
	pos         mgl64.Vec3
	axes        [3]mgl64.Vec3
	halfExtents mgl64.Vec3
}

func bodyOBB(b *Body) obb {
	rot := b.rot
	if l := rot.Len(); l != 0 && l != 1 {
		rot = rot.Normalize()
	}
	return obb{
		pos: b.pos,
		axes: [3]mgl64.Vec3{
			rot.Rotate(mgl64.Vec3{1, 0, 0}),
			rot.Rotate(mgl64.Vec3{0, 1, 0}),
			rot.Rotate(mgl64.Vec3{0, 0, 1}),
		},
		halfExtents: b.shape.HalfExtents,
	}
}

func (o obb) radius() float64 { return o.halfExtents.Len() }

type contact struct {
	normal      mgl64.Vec3 // points from b towards a
	penetration float64
	point       mgl64.Vec3
}

// collideOBB runs a separating-axis test between a and b. The returned normal
// pushes a out of b.
func collideOBB(a, b obb) (contact, bool) {
	l := b.pos.Sub(a.pos)
	if r := a.radius() + b.radius(); l.LenSqr() >= r*r {
		return contact{}, false
	}

	var axes [15]mgl64.Vec3
	n := 0
	for i := 0; i < 3; i++ {
		axes[n] = a.axes[i]
		axes[n+1] = b.axes[i]
		n += 2
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cross := a.axes[i].Cross(b.axes[j])
			if cross.LenSqr() > 0.0001 {
				axes[n] = cross.Normalize()
				n++
			}
		}
	}

	minOverlap := math.MaxFloat64
	var normal mgl64.Vec3
	for _, axis := range axes[:n] {
		overlap := projectedOverlap(a, b, axis, l)
		if overlap <= 0 {
			return contact{}, false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			normal = axis
		}
	}

	if l.Dot(normal) > 0 {
		normal = normal.Mul(-1)
	}

	return contact{normal: normal, penetration: minOverlap, point: contactPoint(a, b)}, true
}

func projectedOverlap(a, b obb, axis, l mgl64.Vec3) float64 {
	var pa, pb float64
	for i := 0; i < 3; i++ {
		pa += math.Abs(a.axes[i].Dot(axis)) * a.halfExtents[i]
		pb += math.Abs(b.axes[i].Dot(axis)) * b.halfExtents[i]
	}
	return pa + pb - math.Abs(l.Dot(axis))
}

// contactPoint averages the corners of each box that lie inside the other.
func contactPoint(a, b obb) mgl64.Vec3 {
	var sum mgl64.Vec3
	count := 0
	for _, p := range a.corners() {
		if b.contains(p) {
			sum = sum.Add(p)
			count++
		}
	}
	for _, p := range b.corners() {
		if a.contains(p) {
			sum = sum.Add(p)
			count++
		}
	}
	if count == 0 {
		return a.pos.Add(b.pos).Mul(0.5)
	}
	return sum.Mul(1 / float64(count))
}

func (o obb) corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		p := o.pos
		for axis := 0; axis < 3; axis++ {
			offset := o.axes[axis].Mul(o.halfExtents[axis])
			if i&(1<<axis) != 0 {
				p = p.Add(offset)
			} else {
				p = p.Sub(offset)
			}
		}
		out[i] = p
	}
	return out
}

func (o obb) contains(p mgl64.Vec3) bool {
	d := p.Sub(o.pos)
	for i := 0; i < 3; i++ {
		if math.Abs(d.Dot(o.axes[i])) > o.halfExtents[i]+contactEpsilon {
			return false
		}
	}
	return true
}

// Overlapping reports whether the collision boxes of a and b intersect.
func Overlapping(a, b *Body) bool {
	_, hit := collideOBB(bodyOBB(a), bodyOBB(b))
	return hit
}
