package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y, z float64) Pose {
	return Pose{Position: Vec3{x, y, z}, Quaternion: IdentityQuat()}
}

func TestStepper_DynamicBodyFalls(t *testing.T) {
	reg, world, _ := newTestRegistry(DefaultWorldSettings())
	require.NoError(t, reg.RegisterBody("box", BoxGeometry(1, 1, 1), at(0, 0, 0), BodyOptions{Mass: Float(1)}))

	stepper := NewStepper(world, 1.0/60.0)
	snap := stepper.Step()

	pose, ok := snap["box"]
	require.True(t, ok)
	assert.Less(t, pose.Position.Z, 0.0)
	assert.Equal(t, 0.0, pose.Position.X)
	assert.Equal(t, 0.0, pose.Position.Y)
	assert.Equal(t, uint64(1), stepper.Steps())
}

func TestStepper_ZeroGravityIsIdempotent(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Gravity = Vec3{}
	reg, world, _ := newTestRegistry(settings)

	start := map[string]Pose{
		"a": at(0, 0, 0),
		"b": at(5, 0, 0),
		"c": {Position: Vec3{0, 5, 1}, Quaternion: Quat{X: 0.5, Y: 0.5, Z: 0.5, W: 0.5}},
		"d": at(-5, -5, 0),
	}
	for id, pose := range start {
		require.NoError(t, reg.RegisterBody(id, BoxGeometry(1, 1, 1), pose, BodyOptions{}))
	}

	stepper := NewStepper(world, DefaultFixedTimestep)
	var snap Snapshot
	for i := 0; i < 120; i++ {
		snap = stepper.Step()
	}

	for id, pose := range start {
		assert.Equal(t, pose, snap[id], id)
	}
}

func TestStepper_StaticBodyStopsDynamic(t *testing.T) {
	reg, world, _ := newTestRegistry(DefaultWorldSettings())
	require.NoError(t, reg.RegisterBody("floor", BoxGeometry(10, 10, 1), at(0, 0, 0), BodyOptions{Mass: Float(0)}))
	require.NoError(t, reg.RegisterBody("cube", BoxGeometry(1, 1, 1), at(0, 0, 0.6), BodyOptions{Mass: Float(1)}))

	stepper := NewStepper(world, DefaultFixedTimestep)
	var snap Snapshot
	for i := 0; i < 30; i++ {
		snap = stepper.Step()
	}

	floor := snap["floor"]
	cube := snap["cube"]
	assert.Equal(t, at(0, 0, 0), floor, "static body must not move")

	// Floor top is at z=0.5 and the cube's half depth is 0.5.
	assert.GreaterOrEqual(t, cube.Position.Z, 1.0-1e-6)
	assert.InDelta(t, 0, cube.Position.X, 1e-9)
	assert.InDelta(t, 0, cube.Position.Y, 1e-9)
}

func TestStepper_FallingBodyLandsOnStatic(t *testing.T) {
	reg, world, _ := newTestRegistry(DefaultWorldSettings())
	require.NoError(t, reg.RegisterBody("floor", BoxGeometry(10, 10, 1), at(0, 0, 0), BodyOptions{Mass: Float(0)}))
	require.NoError(t, reg.RegisterBody("cube", BoxGeometry(1, 1, 1), at(0, 0, 3), BodyOptions{}))

	stepper := NewStepper(world, DefaultFixedTimestep)
	minZ := math.Inf(1)
	for i := 0; i < 240; i++ {
		snap := stepper.Step()
		minZ = math.Min(minZ, snap["cube"].Position.Z)
	}

	assert.Greater(t, minZ, 0.5, "cube passed into the floor")
	body, _ := world.Body("cube")
	assert.InDelta(t, 1.0, body.Position().Z(), 0.05)
}

func TestStepper_ContactMaterialRestitution(t *testing.T) {
	reg, world, _ := newTestRegistry(DefaultWorldSettings())
	require.NoError(t, reg.RegisterBody("wall", BoxGeometry(10, 10, 1), at(0, 0, 0), BodyOptions{Mass: Float(0), Material: MaterialConcrete}))
	require.NoError(t, reg.RegisterBody("cube", BoxGeometry(1, 1, 1), at(0, 0, 1.05), BodyOptions{
		Material:      MaterialPlastic,
		LinearDamping: Float(0),
		Velocity:      Vec3{0, 0, -3},
	}))

	stepper := NewStepper(world, DefaultFixedTimestep)
	for i := 0; i < 5; i++ {
		stepper.Step()
	}

	body, _ := world.Body("cube")
	assert.Greater(t, body.Velocity().Z(), 0.0, "plastic should bounce off concrete")
}

func TestStepper_KinematicIgnoresGravity(t *testing.T) {
	reg, world, _ := newTestRegistry(DefaultWorldSettings())
	require.NoError(t, reg.RegisterBody("k", BoxGeometry(1, 1, 1), at(0, 0, 0), BodyOptions{
		Kind:     KindKinematic,
		Velocity: Vec3{X: 6},
	}))

	stepper := NewStepper(world, 0.5)
	snap := stepper.Step()
	assert.Equal(t, Vec3{X: 3}, snap["k"].Position)
}

func TestStepper_SleepingBodiesStayPut(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Gravity = Vec3{}
	settings.AllowSleep = true
	settings.SleepThreshold = 0.1
	settings.SleepTime = 0.2
	reg, world, _ := newTestRegistry(settings)
	require.NoError(t, reg.RegisterBody("slow", BoxGeometry(1, 1, 1), at(0, 0, 0), BodyOptions{Velocity: Vec3{X: 0.05}}))

	stepper := NewStepper(world, 0.1)
	for i := 0; i < 5; i++ {
		stepper.Step()
	}

	body, _ := world.Body("slow")
	assert.True(t, body.Sleeping())
	assert.Zero(t, body.Velocity().Len())

	require.NoError(t, reg.SetBodyPose("slow", Vec3{1, 1, 1}, IdentityQuat()))
	assert.False(t, body.Sleeping(), "teleport wakes the body")
}

func TestStepper_DefaultTimestep(t *testing.T) {
	assert.Equal(t, DefaultFixedTimestep, NewStepper(NewWorld(DefaultWorldSettings()), 0).Dt())
	assert.Equal(t, DefaultFixedTimestep, NewStepper(NewWorld(DefaultWorldSettings()), math.NaN()).Dt())
}

func TestStepper_FrictionConservesMomentumBetweenDynamicBodies(t *testing.T) {
	settings := DefaultWorldSettings()
	settings.Gravity = Vec3{}
	settings.AllowSleep = false
	reg, world, _ := newTestRegistry(settings)

	still := BodyOptions{LinearDamping: Float(0), AngularDamping: Float(0)}
	moving := still
	moving.Velocity = Vec3{X: 1, Z: -1}
	require.NoError(t, reg.RegisterBody("top", BoxGeometry(1, 1, 1), at(0, 0, 0.95), moving))
	require.NoError(t, reg.RegisterBody("bottom", BoxGeometry(1, 1, 1), at(0, 0, 0), still))

	stepper := NewStepper(world, DefaultFixedTimestep)
	stepper.Step()

	top, _ := world.Body("top")
	bottom, _ := world.Body("bottom")
	require.Greater(t, top.vel[2], -1.0, "the bodies collided")
	assert.Less(t, top.vel[0], 1.0, "friction slowed the top body")
	assert.Greater(t, bottom.vel[0], 0.0, "friction dragged the bottom body")
	assert.InDelta(t, 1.0, top.vel[0]*top.mass+bottom.vel[0]*bottom.mass, 1e-9)
}
