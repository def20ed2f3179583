package disguise

import (
	"time"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
)

// ArchetypeDefinition models a designer-authored disguise archetype. It is
// shared with the schema generator so a machine-readable document can back
// validation and editor tooling.
type ArchetypeDefinition struct {
	ID                string  `json:"id" jsonschema:"title=Archetype id,pattern=^[a-z0-9-]+$,description=Designer facing identifier for the archetype"`
	ObjectType        string  `json:"objectType" jsonschema:"title=Object type,enum=box,enum=sphere,enum=cylinder,description=Environmental object the disguise imitates"`
	Model             string  `json:"model" jsonschema:"description=Model identifier applied to the disguised player"`
	ScaleX            float64 `json:"scaleX" jsonschema:"minimum=0,description=Disguise scale on the X axis"`
	ScaleY            float64 `json:"scaleY" jsonschema:"minimum=0,description=Disguise scale on the Y axis"`
	ScaleZ            float64 `json:"scaleZ" jsonschema:"minimum=0,description=Disguise scale on the Z axis"`
	ColorR            float64 `json:"colorR" jsonschema:"minimum=0,maximum=1"`
	ColorG            float64 `json:"colorG" jsonschema:"minimum=0,maximum=1"`
	ColorB            float64 `json:"colorB" jsonschema:"minimum=0,maximum=1"`
	BaseBelievability float64 `json:"baseBelievability" jsonschema:"minimum=0,maximum=1,description=Believability before skill and environment adjustments"`
	SpeedFactor       float64 `json:"speedFactor,omitempty" jsonschema:"minimum=0,maximum=1,description=Movement speed multiplier while disguised; omit for rooted archetypes"`
	Rooted            bool    `json:"rooted,omitempty" jsonschema:"description=Whether the disguise pins the player in place"`
	DurationMs        int64   `json:"durationMs,omitempty" jsonschema:"minimum=0,description=Disguise lifetime in milliseconds; omit for the 30s default"`
}

// CatalogDefinitions is the canonical array format designers author.
type CatalogDefinitions []ArchetypeDefinition

// DefaultCatalog covers the built-in primitive archetypes. A crate holds
// still but moves a little; a boulder is rooted; a barrel trades cover for
// mobility.
func DefaultCatalog() CatalogDefinitions {
	return CatalogDefinitions{
		{
			ID:                "wooden-crate",
			ObjectType:        string(camouflage.ObjectBox),
			Model:             "prop_crate",
			ScaleX:            1.2, ScaleY: 1.2, ScaleZ: 1.2,
			ColorR:            0.55, ColorG: 0.4, ColorB: 0.2,
			BaseBelievability: 0.85,
			SpeedFactor:       0.25,
		},
		{
			ID:                "boulder",
			ObjectType:        string(camouflage.ObjectSphere),
			Model:             "prop_boulder",
			ScaleX:            1.5, ScaleY: 1.3, ScaleZ: 1.5,
			ColorR:            0.5, ColorG: 0.5, ColorB: 0.52,
			BaseBelievability: 0.75,
			Rooted:            true,
		},
		{
			ID:                "barrel",
			ObjectType:        string(camouflage.ObjectCylinder),
			Model:             "prop_barrel",
			ScaleX:            1.0, ScaleY: 1.4, ScaleZ: 1.0,
			ColorR:            0.45, ColorG: 0.3, ColorB: 0.15,
			BaseBelievability: 0.65,
			SpeedFactor:       0.5,
		},
	}
}

// candidate builds a camouflage.Candidate from the archetype at the given
// believability.
func (d ArchetypeDefinition) candidate(believability float64) camouflage.Candidate {
	var restrictions []camouflage.MovementRestriction
	if d.Rooted {
		restrictions = append(restrictions, camouflage.MovementRestriction{Kind: camouflage.RestrictionRooted})
	} else if d.SpeedFactor > 0 && d.SpeedFactor < 1 {
		restrictions = append(restrictions, camouflage.MovementRestriction{
			Kind:   camouflage.RestrictionSpeedFactor,
			Factor: d.SpeedFactor,
		})
	}
	var duration time.Duration
	if d.DurationMs > 0 {
		duration = time.Duration(d.DurationMs) * time.Millisecond
	}
	return camouflage.Candidate{
		ObjectType:         camouflage.ObjectType(d.ObjectType),
		Model:              d.Model,
		Scale:              geom.Vec3{X: d.ScaleX, Y: d.ScaleY, Z: d.ScaleZ},
		Color:              camouflage.Color{R: d.ColorR, G: d.ColorG, B: d.ColorB},
		BelievabilityScore: believability,
		Restrictions:       restrictions,
		Duration:           duration,
	}
}
