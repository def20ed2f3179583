package server

import (
	"time"

	"hide-and-seek/server/internal/camouflage"
)

// Mesh is the server-side renderable handle for a player. The real drawing
// happens client-side; the mesh tracks the authoritative visual state that
// snapshots replicate, and the metadata other systems read.
type Mesh struct {
	appearance camouflage.Appearance
	metadata   map[string]any

	lastFadeTarget float64
	lastFadeOver   time.Duration
	fadeCount      int
}

// NewMesh constructs a mesh with the given starting appearance.
func NewMesh(appearance camouflage.Appearance) *Mesh {
	return &Mesh{
		appearance: appearance.Clone(),
		metadata:   make(map[string]any),
	}
}

// NewPlayerMesh builds the stock avatar mesh players spawn with.
func NewPlayerMesh() *Mesh {
	return NewMesh(camouflage.Appearance{
		Model:   "avatar_default",
		Scale:   defaultAvatarScale,
		Color:   camouflage.Color{R: 0.2, G: 0.55, B: 0.85},
		Opacity: 1,
		Materials: []camouflage.Material{
			{Name: "skin", Color: camouflage.Color{R: 0.2, G: 0.55, B: 0.85}, Opacity: 1},
		},
		Geometry: camouflage.Geometry{Kind: camouflage.GeometryMesh, MeshRef: "avatar_default"},
	})
}

// Appearance returns an independently owned snapshot.
func (m *Mesh) Appearance() camouflage.Appearance {
	return m.appearance.Clone()
}

// ApplyAppearance swaps the mesh to the given appearance.
func (m *Mesh) ApplyAppearance(appearance camouflage.Appearance) error {
	m.appearance = appearance.Clone()
	return nil
}

// FadeOpacity records a fade request. Interpolation is the client's job;
// the authoritative opacity lands on the target immediately.
func (m *Mesh) FadeOpacity(target float64, over time.Duration) error {
	m.appearance.Opacity = target
	m.lastFadeTarget = target
	m.lastFadeOver = over
	m.fadeCount++
	return nil
}

// SetMetadata attaches externally readable metadata.
func (m *Mesh) SetMetadata(key string, value any) {
	m.metadata[key] = value
}

// RemoveMetadata detaches metadata.
func (m *Mesh) RemoveMetadata(key string) {
	delete(m.metadata, key)
}

// Metadata reads attached metadata, for consumers like the movement system.
func (m *Mesh) Metadata(key string) (any, bool) {
	value, ok := m.metadata[key]
	return value, ok
}

// FadeCount reports how many fades were requested. Used by tests and
// diagnostics.
func (m *Mesh) FadeCount() int {
	return m.fadeCount
}
