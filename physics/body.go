package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type BodyKind int

const (
	// KindAuto picks Static for zero mass and Dynamic otherwise.
	KindAuto BodyKind = iota
	KindDynamic
	KindStatic
	KindKinematic
)

func (k BodyKind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindDynamic:
		return "dynamic"
	case KindStatic:
		return "static"
	case KindKinematic:
		return "kinematic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k BodyKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *BodyKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "auto":
		*k = KindAuto
	case "dynamic":
		*k = KindDynamic
	case "static":
		*k = KindStatic
	case "kinematic":
		*k = KindKinematic
	default:
		return fmt.Errorf("unknown body kind %q", text)
	}
	return nil
}

const (
	DefaultMass           = 1.0
	DefaultLinearDamping  = 0.01
	DefaultAngularDamping = 0.01
)

// BodyOptions is the plain-data part of a registration request. Nil pointers
// take the defaults.
type BodyOptions struct {
	Mass            *float64 `json:"mass,omitempty" yaml:"mass,omitempty"`
	Kind            BodyKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Material        string   `json:"material,omitempty" yaml:"material,omitempty"`
	LinearDamping   *float64 `json:"linear_damping,omitempty" yaml:"linear_damping,omitempty"`
	AngularDamping  *float64 `json:"angular_damping,omitempty" yaml:"angular_damping,omitempty"`
	Velocity        Vec3     `json:"velocity" yaml:"velocity"`
	AngularVelocity Vec3     `json:"angular_velocity" yaml:"angular_velocity"`
}

// Float returns a pointer to v, for optional option fields.
func Float(v float64) *float64 { return &v }

type Body struct {
	id             string
	kind           BodyKind
	shape          CollisionShape
	mass           float64
	material       string
	pos            mgl64.Vec3
	rot            mgl64.Quat
	vel            mgl64.Vec3
	angVel         mgl64.Vec3
	linearDamping  float64
	angularDamping float64
	sleeping       bool
	idleTime       float64
}

func newBody(id string, shape CollisionShape, pose Pose, opts BodyOptions) *Body {
	mass := DefaultMass
	if opts.Mass != nil {
		mass = *opts.Mass
	}
	if mass < 0 {
		mass = 0
	}

	kind := opts.Kind
	switch {
	case kind == KindAuto && mass == 0:
		kind = KindStatic
	case kind == KindAuto:
		kind = KindDynamic
	case kind == KindStatic:
		mass = 0
	case kind == KindDynamic && mass == 0:
		mass = DefaultMass
	}

	b := &Body{
		id:             id,
		kind:           kind,
		shape:          shape,
		mass:           mass,
		material:       opts.Material,
		pos:            pose.Vec3(),
		rot:            orientation(pose.Quat()),
		vel:            opts.Velocity.Vec3(),
		angVel:         opts.AngularVelocity.Vec3(),
		linearDamping:  DefaultLinearDamping,
		angularDamping: DefaultAngularDamping,
	}
	if opts.LinearDamping != nil {
		b.linearDamping = *opts.LinearDamping
	}
	if opts.AngularDamping != nil {
		b.angularDamping = *opts.AngularDamping
	}
	if kind == KindStatic {
		b.vel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
	}
	return b
}

func (b *Body) ID() string                  { return b.id }
func (b *Body) Kind() BodyKind              { return b.kind }
func (b *Body) Mass() float64               { return b.mass }
func (b *Body) Material() string            { return b.material }
func (b *Body) Shape() CollisionShape       { return b.shape }
func (b *Body) Position() mgl64.Vec3        { return b.pos }
func (b *Body) Rotation() mgl64.Quat        { return b.rot }
func (b *Body) Velocity() mgl64.Vec3        { return b.vel }
func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angVel }
func (b *Body) Sleeping() bool              { return b.sleeping }
func (b *Body) Pose() Pose                  { return SimplifyPose(b.pos, b.rot) }

func (b *Body) isDynamic() bool { return b.kind == KindDynamic && b.mass > 0 }

func (b *Body) Wake() {
	b.sleeping = false
	b.idleTime = 0
}

// inertia approximates the body as a cube: I = m * s^2 / 6 with s the mean edge.
func (b *Body) inertia() float64 {
	he := b.shape.HalfExtents
	size := (he[0] + he[1] + he[2]) / 3 * 2
	inertia := b.mass * size * size / 6
	if inertia <= 0 {
		return 0
	}
	return inertia
}

// orientation keeps q bit for bit unless it is the zero quaternion, which
// cannot describe a rotation.
func orientation(q mgl64.Quat) mgl64.Quat {
	if q.W == 0 && q.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return q
}
