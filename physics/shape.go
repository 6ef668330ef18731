package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PlaneSlabHalfDepth is the z half-extent given to plane geometry. Planes
// collide as thin boxes, never as infinite half-spaces.
const PlaneSlabHalfDepth = 0.05

var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
	ErrInvalidGeometry     = errors.New("invalid geometry dimensions")
)

type GeometryKind int

const (
	GeometryUnknown GeometryKind = iota
	GeometryBox
	GeometryPlane
)

func (k GeometryKind) String() string {
	switch k {
	case GeometryBox:
		return "box"
	case GeometryPlane:
		return "plane"
	default:
		return fmt.Sprintf("geometry(%d)", int(k))
	}
}

// Geometry describes render geometry in terms the collision system can
// consume. Depth is ignored for planes.
type Geometry struct {
	Kind   GeometryKind `json:"kind" yaml:"kind"`
	Width  float64      `json:"width" yaml:"width"`
	Height float64      `json:"height" yaml:"height"`
	Depth  float64      `json:"depth,omitempty" yaml:"depth,omitempty"`
}

func BoxGeometry(width, height, depth float64) Geometry {
	return Geometry{Kind: GeometryBox, Width: width, Height: height, Depth: depth}
}

func PlaneGeometry(width, height float64) Geometry {
	return Geometry{Kind: GeometryPlane, Width: width, Height: height}
}

// CollisionShape is an axis-aligned box in body space.
type CollisionShape struct {
	HalfExtents mgl64.Vec3 `json:"half_extents"`
}

// MapGeometry converts a geometry descriptor into its collision box.
func MapGeometry(g Geometry) (CollisionShape, error) {
	switch g.Kind {
	case GeometryBox:
		if !validDims(g.Width, g.Height, g.Depth) {
			return CollisionShape{}, fmt.Errorf("%w: box %vx%vx%v", ErrInvalidGeometry, g.Width, g.Height, g.Depth)
		}
		return CollisionShape{HalfExtents: mgl64.Vec3{g.Width / 2, g.Height / 2, g.Depth / 2}}, nil
	case GeometryPlane:
		if !validDims(g.Width, g.Height) {
			return CollisionShape{}, fmt.Errorf("%w: plane %vx%v", ErrInvalidGeometry, g.Width, g.Height)
		}
		return CollisionShape{HalfExtents: mgl64.Vec3{g.Width / 2, g.Height / 2, PlaneSlabHalfDepth}}, nil
	default:
		return CollisionShape{}, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.Kind)
	}
}

func validDims(dims ...float64) bool {
	for _, d := range dims {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return false
		}
	}
	return true
}
