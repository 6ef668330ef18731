package physics

import "github.com/go-gl/mathgl/mgl64"

// Vec3 and Quat are the wire forms of positions and orientations. They hold
// no engine state and can be copied freely between goroutines.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

type Pose struct {
	Position   Vec3 `json:"position" yaml:"position"`
	Quaternion Quat `json:"quaternion" yaml:"quaternion"`
}

// Snapshot maps entity ids to their poses after a step.
type Snapshot map[string]Pose

func IdentityQuat() Quat { return Quat{W: 1} }

func SimplifyPosition(v mgl64.Vec3) Vec3 {
	return Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func SimplifyQuaternion(q mgl64.Quat) Quat {
	return Quat{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

func SimplifyPose(position mgl64.Vec3, rotation mgl64.Quat) Pose {
	return Pose{Position: SimplifyPosition(position), Quaternion: SimplifyQuaternion(rotation)}
}

func (v Vec3) Vec3() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func (q Quat) Quat() mgl64.Quat { return mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}} }

func (p Pose) Vec3() mgl64.Vec3 { return p.Position.Vec3() }

func (p Pose) Quat() mgl64.Quat { return p.Quaternion.Quat() }
