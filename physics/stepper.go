package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultFixedTimestep is the duration of one simulation step in seconds.
const DefaultFixedTimestep = 1.0 / 60.0

// Stepper advances a world in constant-size steps. Frame timing never reaches
// it: every call to Step integrates exactly dt seconds.
type Stepper struct {
	world *World
	dt    float64
	steps uint64

	grid       *spatialGrid
	candidates []int
}

func NewStepper(world *World, dt float64) *Stepper {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		dt = DefaultFixedTimestep
	}
	return &Stepper{world: world, dt: dt, grid: newSpatialGrid()}
}

func (s *Stepper) Dt() float64 { return s.dt }

// Steps returns how many steps have been taken.
func (s *Stepper) Steps() uint64 { return s.steps }

// Step advances the world by one fixed timestep and returns every body's pose.
func (s *Stepper) Step() Snapshot {
	s.advance()
	s.steps++
	return s.world.Snapshot()
}

func (s *Stepper) advance() {
	w := s.world
	dt := s.dt
	margin := s.buildGrid()

	for _, b := range w.bodies {
		if b.kind == KindStatic || b.sleeping {
			continue
		}

		if b.kind == KindKinematic {
			b.pos = b.pos.Add(b.vel.Mul(dt))
			b.rot = integrateRotation(b.rot, b.angVel, dt)
			continue
		}

		if !b.isDynamic() {
			continue
		}

		b.vel = b.vel.Add(w.gravity.Mul(dt))
		b.vel = b.vel.Mul(math.Pow(1-b.linearDamping, dt))
		b.angVel = b.angVel.Mul(math.Pow(1-b.angularDamping, dt))

		if invalidVec(b.vel) || invalidVec(b.angVel) {
			b.vel = mgl64.Vec3{}
			b.angVel = mgl64.Vec3{}
			continue
		}

		b.pos = b.pos.Add(b.vel.Mul(dt))
		b.rot = integrateRotation(b.rot, b.angVel, dt)

		s.candidates = s.grid.query(bodyOBB(b).bounds().grow(margin), s.candidates[:0])
		for _, j := range s.candidates {
			other := w.bodies[j]
			if other == b {
				continue
			}
			c, hit := collideOBB(bodyOBB(b), bodyOBB(other))
			if !hit {
				continue
			}
			s.resolve(b, other, c)
		}

		if w.allowSleep {
			if b.vel.Len() < w.sleepThreshold && b.angVel.Len() < w.sleepThreshold {
				b.idleTime += dt
				if b.idleTime > w.sleepTime {
					b.sleeping = true
					b.vel = mgl64.Vec3{}
					b.angVel = mgl64.Vec3{}
				}
			} else {
				b.idleTime = 0
			}
		}
	}
}

// buildGrid hashes every body for the broadphase and returns how far the
// query boxes must reach to cover the motion of this step.
func (s *Stepper) buildGrid() float64 {
	w := s.world
	var cell, speed float64
	for _, b := range w.bodies {
		if b.kind == KindStatic {
			continue
		}
		r := b.shape.HalfExtents.Len()
		cell = math.Max(cell, 2*r)
		speed = math.Max(speed, b.vel.Len()+b.angVel.Len()*r)
	}
	s.grid.reset(math.Max(cell, 0.1))

	for i, b := range w.bodies {
		s.grid.insert(i, bodyOBB(b).bounds())
	}
	return 2*speed*s.dt + w.gravity.Len()*s.dt*s.dt + contactEpsilon
}

// resolve pushes the dynamic body b out of other and applies the contact
// impulse of their material pair.
func (s *Stepper) resolve(b, other *Body, c contact) {
	b.pos = b.pos.Add(c.normal.Mul(c.penetration))

	rA := c.point.Sub(b.pos)
	rB := c.point.Sub(other.pos)

	vA := b.vel.Add(b.angVel.Cross(rA))
	vB := other.vel.Add(other.angVel.Cross(rB))
	if other.kind == KindStatic {
		vB = mgl64.Vec3{}
	}

	relativeVel := vA.Sub(vB)
	velAlongNormal := relativeVel.Dot(c.normal)
	if velAlongNormal > 0 {
		return
	}

	cm := s.world.contact(b, other)

	inertiaA := b.inertia()
	denom := 1 / b.mass
	if inertiaA > 0 {
		rAn := rA.Cross(c.normal)
		denom += rAn.Dot(rAn) / inertiaA
	}

	otherDynamic := other.isDynamic()
	inertiaB := other.inertia()
	if otherDynamic {
		denom += 1 / other.mass
		if inertiaB > 0 {
			rBn := rB.Cross(c.normal)
			denom += rBn.Dot(rBn) / inertiaB
		}
	}

	j := -(1 + cm.Restitution) * velAlongNormal / denom
	impulse := c.normal.Mul(j)

	b.vel = b.vel.Add(impulse.Mul(1 / b.mass))
	if inertiaA > 0 {
		b.angVel = b.angVel.Add(rA.Cross(impulse).Mul(1 / inertiaA))
	}
	if otherDynamic {
		other.vel = other.vel.Sub(impulse.Mul(1 / other.mass))
		if inertiaB > 0 {
			other.angVel = other.angVel.Sub(rB.Cross(impulse).Mul(1 / inertiaB))
		}
		other.Wake()
	}

	tangent := relativeVel.Sub(c.normal.Mul(velAlongNormal))
	if cm.Friction > 0 && tangent.Len() > 0.0001 {
		tangent = tangent.Normalize()
		jt := -relativeVel.Dot(tangent) * cm.Friction / denom
		friction := tangent.Mul(jt)
		b.vel = b.vel.Add(friction.Mul(1 / b.mass))
		if inertiaA > 0 {
			b.angVel = b.angVel.Add(rA.Cross(friction).Mul(1 / inertiaA))
		}
		if otherDynamic {
			other.vel = other.vel.Sub(friction.Mul(1 / other.mass))
			if inertiaB > 0 {
				other.angVel = other.angVel.Sub(rB.Cross(friction).Mul(1 / inertiaB))
			}
		}
	}
}

func integrateRotation(rot mgl64.Quat, angVel mgl64.Vec3, dt float64) mgl64.Quat {
	if angVel.LenSqr() == 0 {
		return rot
	}
	spin := mgl64.Quat{W: 0, V: angVel.Mul(0.5 * dt)}
	return rot.Add(spin.Mul(rot)).Normalize()
}

func invalidVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return false
}
