package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// WorldSettings are the global parameters of a simulation world.
type WorldSettings struct {
	Gravity          Vec3              `json:"gravity" yaml:"gravity"`
	ContactMaterials []ContactMaterial `json:"contact_materials" yaml:"contact_materials"`
	DefaultContact   ContactMaterial   `json:"default_contact" yaml:"default_contact"`
	AllowSleep       bool              `json:"allow_sleep" yaml:"allow_sleep"`
	SleepThreshold   float64           `json:"sleep_threshold" yaml:"sleep_threshold"`
	SleepTime        float64           `json:"sleep_time" yaml:"sleep_time"`
}

func DefaultWorldSettings() WorldSettings {
	return WorldSettings{
		Gravity:          Vec3{0, 0, -9.82},
		ContactMaterials: MosaicContactMaterials(),
		DefaultContact:   DefaultContactMaterial(),
		AllowSleep:       false,
		SleepThreshold:   0.05,
		SleepTime:        1.0,
	}
}

// World holds every rigid body of one simulation. It is not safe for
// concurrent use; a single goroutine owns it for its whole lifetime.
type World struct {
	gravity        mgl64.Vec3
	bodies         []*Body
	index          map[string]*Body
	contacts       map[materialPair]ContactMaterial
	defaultContact ContactMaterial
	allowSleep     bool
	sleepThreshold float64
	sleepTime      float64
}

func NewWorld(settings WorldSettings) *World {
	w := &World{index: make(map[string]*Body)}
	w.Configure(settings)
	return w
}

// Configure replaces gravity, the contact-material table and sleep settings.
// Bodies are kept.
func (w *World) Configure(settings WorldSettings) {
	w.gravity = settings.Gravity.Vec3()
	w.contacts = make(map[materialPair]ContactMaterial, len(settings.ContactMaterials))
	for _, cm := range settings.ContactMaterials {
		w.contacts[pairKey(cm.A, cm.B)] = cm
	}
	w.defaultContact = settings.DefaultContact
	w.allowSleep = settings.AllowSleep
	w.sleepThreshold = settings.SleepThreshold
	w.sleepTime = settings.SleepTime
	for _, b := range w.bodies {
		b.Wake()
	}
}

func (w *World) Gravity() mgl64.Vec3 { return w.gravity }

func (w *World) Len() int { return len(w.bodies) }

func (w *World) Body(id string) (*Body, bool) {
	b, ok := w.index[id]
	return b, ok
}

func (w *World) addBody(b *Body) {
	w.bodies = append(w.bodies, b)
	w.index[b.id] = b
}

// contact returns the rule for the materials of a and b.
func (w *World) contact(a, b *Body) ContactMaterial {
	if cm, ok := w.contacts[pairKey(a.material, b.material)]; ok {
		return cm
	}
	return w.defaultContact
}

// BodyView is a copy of a body's state for diagnostics.
type BodyView struct {
	ID              string         `json:"id"`
	Kind            BodyKind       `json:"kind"`
	Mass            float64        `json:"mass"`
	Material        string         `json:"material,omitempty"`
	Shape           CollisionShape `json:"shape"`
	Pose            Pose           `json:"pose"`
	Velocity        Vec3           `json:"velocity"`
	AngularVelocity Vec3           `json:"angular_velocity"`
	Sleeping        bool           `json:"sleeping"`
}

// WorldView is a read-only copy of a world. Changing it does not affect the
// simulation.
type WorldView struct {
	Gravity          Vec3              `json:"gravity"`
	ContactMaterials []ContactMaterial `json:"contact_materials"`
	Bodies           []BodyView        `json:"bodies"`
}

// Body returns the view of the body registered as id.
func (v WorldView) Body(id string) (BodyView, bool) {
	for _, b := range v.Bodies {
		if b.ID == id {
			return b, true
		}
	}
	return BodyView{}, false
}

func (w *World) View() WorldView {
	view := WorldView{
		Gravity: SimplifyPosition(w.gravity),
		Bodies:  make([]BodyView, 0, len(w.bodies)),
	}
	for _, cm := range w.contacts {
		view.ContactMaterials = append(view.ContactMaterials, cm)
	}
	for _, b := range w.bodies {
		view.Bodies = append(view.Bodies, BodyView{
			ID:              b.id,
			Kind:            b.kind,
			Mass:            b.mass,
			Material:        b.material,
			Shape:           b.shape,
			Pose:            b.Pose(),
			Velocity:        SimplifyPosition(b.vel),
			AngularVelocity: SimplifyPosition(b.angVel),
			Sleeping:        b.sleeping,
		})
	}
	return view
}

// Snapshot returns the pose of every body keyed by id.
func (w *World) Snapshot() Snapshot {
	snap := make(Snapshot, len(w.bodies))
	for _, b := range w.bodies {
		snap[b.id] = b.Pose()
	}
	return snap
}
