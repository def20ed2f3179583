package server

import (
	"fmt"
	"math/rand"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/environment"
	"hide-and-seek/server/internal/geom"
)

type propTemplate struct {
	objectType camouflage.ObjectType
	model      string
	scale      geom.Vec3
	color      camouflage.Color
	cover      float64
}

var propTemplates = []propTemplate{
	{camouflage.ObjectBox, "prop_crate", geom.Vec3{X: 1.2, Y: 1.2, Z: 1.2}, camouflage.Color{R: 0.55, G: 0.4, B: 0.2}, 0.8},
	{camouflage.ObjectSphere, "prop_boulder", geom.Vec3{X: 1.5, Y: 1.3, Z: 1.5}, camouflage.Color{R: 0.5, G: 0.5, B: 0.52}, 0.7},
	{camouflage.ObjectCylinder, "prop_barrel", geom.Vec3{X: 1, Y: 1.4, Z: 1}, camouflage.Color{R: 0.45, G: 0.3, B: 0.15}, 0.6},
}

// generateProps scatters furniture across the arena. A fixed seed keeps
// the layout stable across restarts so clients can prebake navigation.
func generateProps(count int) []environment.Prop {
	rng := rand.New(rand.NewSource(7))
	props := make([]environment.Prop, 0, count)
	for i := 0; i < count; i++ {
		template := propTemplates[i%len(propTemplates)]
		props = append(props, environment.Prop{
			ID:         fmt.Sprintf("prop-%d", i+1),
			Position:   geom.Vec3{X: rng.Float64() * worldSize, Y: 0, Z: rng.Float64() * worldSize},
			ObjectType: template.objectType,
			Model:      template.model,
			Scale:      template.scale,
			Color:      template.color,
			Cover:      template.cover,
		})
	}
	return props
}

// propsNear returns props within radius of position, for the analyzer.
func (h *Hub) propsNear(position geom.Vec3, radius float64) []environment.Prop {
	nearby := make([]environment.Prop, 0, 8)
	for _, prop := range h.props {
		if position.DistanceTo(prop.Position) <= radius {
			nearby = append(nearby, prop)
		}
	}
	return nearby
}
