package mosaic

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/gekko3d/mosaic/physics"
)

// Tile is the part of the texture a mesh shows.
type Tile struct {
	Offset mgl64.Vec2
	Repeat mgl64.Vec2
}

// FullTile shows the whole texture.
var FullTile = Tile{Repeat: mgl64.Vec2{1, 1}}

// PhysicsMesh is a renderable whose rigid body lives on the physics worker.
// The mesh only keeps the body's id; poses travel by value in both directions.
type PhysicsMesh struct {
	ID       string
	Name     string
	Geometry physics.Geometry
	Tile     Tile

	Position mgl64.Vec3
	Rotation mgl64.Quat

	bridge BodyBridge
	log    Logger
}

// NewPhysicsMesh registers a body for the new mesh at the identity pose and
// returns without waiting. A rejected registration is logged and the mesh
// stays render-only.
func NewPhysicsMesh(bridge BodyBridge, log Logger, geometry physics.Geometry, opts physics.BodyOptions) *PhysicsMesh {
	m := &PhysicsMesh{
		ID:       uuid.NewString(),
		Geometry: geometry,
		Tile:     FullTile,
		Rotation: mgl64.QuatIdent(),
		bridge:   bridge,
		log:      orNop(log),
	}

	m.register(opts)
	return m
}

func (m *PhysicsMesh) register(opts physics.BodyOptions) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("mesh %s: body registration failed: %v", m.ID, r)
		}
	}()

	pose := physics.SimplifyPose(m.Position, m.Rotation)
	m.bridge.RegisterBody(m.ID, m.Geometry, pose, opts).OnError(func(err error) {
		m.log.Errorf("mesh %s: body registration failed: %v", m.ID, err)
	})
}

func (m *PhysicsMesh) SetPosition(x, y, z float64) {
	m.Position = mgl64.Vec3{x, y, z}
}

func (m *PhysicsMesh) SetRotation(q mgl64.Quat) {
	m.Rotation = q
}

// PushPose sends the render pose to the body. Failures are logged, never
// returned.
func (m *PhysicsMesh) PushPose() {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("mesh %s: pose update failed: %v", m.ID, r)
		}
	}()

	position := physics.SimplifyPosition(m.Position)
	quaternion := physics.SimplifyQuaternion(m.Rotation)
	m.bridge.SetBodyPose(m.ID, position, quaternion).OnError(func(err error) {
		m.log.Errorf("mesh %s: pose update rejected: %v", m.ID, err)
	})
}

// PullPose copies a simulated pose onto the render transform.
func (m *PhysicsMesh) PullPose(pose physics.Pose) {
	m.Position = pose.Vec3()
	m.Rotation = pose.Quat()
}

// Pose returns the render transform in wire form.
func (m *PhysicsMesh) Pose() physics.Pose {
	return physics.SimplifyPose(m.Position, m.Rotation)
}
