package physics

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("entity already registered")
)

// Logger is the subset of the engine logger the physics package writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

// Registry owns the bodies of a world, keyed by entity id.
type Registry struct {
	world *World
	log   Logger
}

func NewRegistry(world *World, log Logger) *Registry {
	if log == nil {
		log = nopLogger{}
	}
	return &Registry{world: world, log: log}
}

// RegisterBody adds a body for id. When the geometry has no collision shape
// the error is returned and no body is created; the entity stays visual-only.
func (r *Registry) RegisterBody(id string, geometry Geometry, pose Pose, opts BodyOptions) error {
	if _, exists := r.world.Body(id); exists {
		r.log.Warnf("physics: body %s already registered", id)
		return fmt.Errorf("%w: %s", ErrDuplicateEntity, id)
	}

	shape, err := MapGeometry(geometry)
	if err != nil {
		r.log.Warnf("physics: couldn't add body %s: %v", id, err)
		return fmt.Errorf("register %s: %w", id, err)
	}

	body := newBody(id, shape, pose, opts)
	r.world.addBody(body)
	r.log.Debugf("physics: registered %s body %s (mass %.3g, material %q)", body.kind, id, body.mass, body.material)
	return nil
}

// SetBodyPose teleports the body of id. Unknown ids are logged and ignored:
// updates can legitimately race ahead of a registration that failed.
func (r *Registry) SetBodyPose(id string, position Vec3, quaternion Quat) error {
	body, ok := r.world.Body(id)
	if !ok {
		r.log.Debugf("physics: pose update for %s ignored: %v", id, ErrUnknownEntity)
		return nil
	}
	body.pos = position.Vec3()
	body.rot = orientation(quaternion.Quat())
	body.Wake()
	return nil
}

// World returns a copy of the world for diagnostics.
func (r *Registry) World() WorldView { return r.world.View() }

func (r *Registry) Configure(settings WorldSettings) { r.world.Configure(settings) }
