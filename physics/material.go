package physics

// Material names used by the mosaic scene.
const (
	MaterialConcrete = "concrete"
	MaterialPlastic  = "plastic"
)

// ContactMaterial is the friction/restitution rule applied when bodies of
// materials A and B touch. The pair is unordered.
type ContactMaterial struct {
	A           string  `json:"a" yaml:"a"`
	B           string  `json:"b" yaml:"b"`
	Friction    float64 `json:"friction" yaml:"friction"`
	Restitution float64 `json:"restitution" yaml:"restitution"`
}

type materialPair struct{ a, b string }

func pairKey(a, b string) materialPair {
	if b < a {
		a, b = b, a
	}
	return materialPair{a, b}
}

// DefaultContactMaterial applies to pairs without an explicit rule.
func DefaultContactMaterial() ContactMaterial {
	return ContactMaterial{Friction: 0.3, Restitution: 0}
}

// MosaicContactMaterials returns the rules of the photo mosaic scene: plastic
// cubes bounce off the concrete container without losing speed.
func MosaicContactMaterials() []ContactMaterial {
	return []ContactMaterial{
		{A: MaterialConcrete, B: MaterialPlastic, Friction: 0, Restitution: 1},
	}
}
