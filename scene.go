package mosaic

import (
	"github.com/gekko3d/mosaic/physics"
)

// Scene is the photo mosaic: a static container and a grid of image cubes,
// each backed by a body on the physics worker.
type Scene struct {
	Layout Layout
	Walls  []*PhysicsMesh
	Cubes  []*PhysicsMesh

	byID map[string]*PhysicsMesh
	log  Logger
}

func WallOptions() physics.BodyOptions {
	return physics.BodyOptions{
		Kind:     physics.KindStatic,
		Mass:     physics.Float(0),
		Material: physics.MaterialConcrete,
	}
}

func CubeOptions() physics.BodyOptions {
	return physics.BodyOptions{
		Mass:     physics.Float(1),
		Material: physics.MaterialPlastic,
	}
}

// BuildScene creates every mesh of layout. Meshes register at the origin and
// then push their placed pose, so the bridge sees both requests in order.
func BuildScene(bridge BodyBridge, log Logger, layout Layout) *Scene {
	s := &Scene{
		Layout: layout,
		byID:   make(map[string]*PhysicsMesh),
		log:    orNop(log),
	}

	for _, wall := range layout.ContainerWalls() {
		m := s.place(bridge, wall, WallOptions())
		s.Walls = append(s.Walls, m)
	}
	for _, cell := range layout.ImageCubes() {
		m := s.place(bridge, cell.Placement, CubeOptions())
		m.Tile = cell.Tile
		s.Cubes = append(s.Cubes, m)
	}

	s.log.Infof("scene: %d walls, %d cubes in a %.2f x %.2f x %.2f container",
		len(s.Walls), len(s.Cubes), layout.ContainerWidth, layout.ContainerHeight, layout.ContainerDepth)
	return s
}

func (s *Scene) place(bridge BodyBridge, p Placement, opts physics.BodyOptions) *PhysicsMesh {
	m := NewPhysicsMesh(bridge, s.log, p.Geometry, opts)
	m.Name = p.Name
	m.SetPosition(p.Position[0], p.Position[1], p.Position[2])
	m.PushPose()
	s.byID[m.ID] = m
	return m
}

func (s *Scene) Mesh(id string) (*PhysicsMesh, bool) {
	m, ok := s.byID[id]
	return m, ok
}

func (s *Scene) Len() int { return len(s.byID) }

// Apply pulls snapshot poses onto the meshes and returns how many it
// updated. Ids without a mesh are skipped.
func (s *Scene) Apply(snap physics.Snapshot) int {
	n := 0
	for id, pose := range snap {
		m, ok := s.byID[id]
		if !ok {
			continue
		}
		m.PullPose(pose)
		n++
	}
	return n
}

// SceneModule builds the scene in the Startup stage and installs it as a
// resource.
type SceneModule struct {
	Bridge BodyBridge
	Layout Layout
}

func (mod SceneModule) Install(app *App, cmd *Commands) {
	bridge, layout := mod.Bridge, mod.Layout
	cmd.UseSystem(System(func(cmd *Commands) {
		cmd.AddResources(BuildScene(bridge, cmd.Logger(), layout))
	}).InStage(Startup))
}
