package camouflage

import "hide-and-seek/server/internal/geom"

// Color is a normalized RGB triple.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Material describes one surface layer of a renderable.
type Material struct {
	Name              string  `json:"name"`
	Color             Color   `json:"color"`
	Opacity           float64 `json:"opacity"`
	Emissive          Color   `json:"emissive"`
	EmissiveIntensity float64 `json:"emissiveIntensity"`
}

// GeometryKind names the primitive shape backing a renderable.
type GeometryKind string

const (
	GeometryBox      GeometryKind = "box"
	GeometrySphere   GeometryKind = "sphere"
	GeometryCylinder GeometryKind = "cylinder"
	GeometryMesh     GeometryKind = "mesh"
)

// Geometry references either a primitive or an authored mesh.
type Geometry struct {
	Kind    GeometryKind `json:"kind"`
	MeshRef string       `json:"meshRef,omitempty"`
}

// Appearance is the full visual state of a player's renderable. Snapshots
// taken with Clone share no memory with the live renderable, so a snapshot
// stays restorable no matter what happens to the original afterwards.
type Appearance struct {
	Model     string    `json:"model"`
	Scale     geom.Vec3 `json:"scale"`
	Color     Color     `json:"color"`
	Opacity   float64   `json:"opacity"`
	Materials []Material `json:"materials,omitempty"`
	Geometry  Geometry  `json:"geometry"`
}

// Clone returns an independently owned deep copy.
func (a Appearance) Clone() Appearance {
	cloned := a
	if len(a.Materials) > 0 {
		cloned.Materials = append([]Material(nil), a.Materials...)
	}
	return cloned
}

// Equal reports whether two appearances are identical, materials included.
func (a Appearance) Equal(b Appearance) bool {
	if a.Model != b.Model || a.Scale != b.Scale || a.Color != b.Color ||
		a.Opacity != b.Opacity || a.Geometry != b.Geometry {
		return false
	}
	if len(a.Materials) != len(b.Materials) {
		return false
	}
	for i := range a.Materials {
		if a.Materials[i] != b.Materials[i] {
			return false
		}
	}
	return true
}
