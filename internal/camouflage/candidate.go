package camouflage

import (
	"time"

	"hide-and-seek/server/internal/geom"
)

// ObjectType names the environmental object a disguise imitates.
type ObjectType string

const (
	ObjectBox      ObjectType = "box"
	ObjectSphere   ObjectType = "sphere"
	ObjectCylinder ObjectType = "cylinder"
)

// DefaultCandidateDuration applies when a candidate carries no duration.
const DefaultCandidateDuration = 30 * time.Second

// RestrictionKind classifies a movement restriction.
type RestrictionKind string

const (
	RestrictionSpeedFactor RestrictionKind = "speed-factor"
	RestrictionRooted      RestrictionKind = "rooted"
	RestrictionNoJump      RestrictionKind = "no-jump"
)

// MovementRestriction is attached to a disguised player's renderable as
// metadata. An external movement system enforces it; this package only
// attaches and removes it.
type MovementRestriction struct {
	Kind   RestrictionKind `json:"kind"`
	Factor float64         `json:"factor,omitempty"`
}

// MetadataMovementRestrictions is the renderable metadata key under which
// active restrictions are published for the movement system to read.
const MetadataMovementRestrictions = "movementRestrictions"

// Candidate is a generated disguise proposal: what to look like, how
// convincing it is, and for how long.
type Candidate struct {
	ObjectType         ObjectType            `json:"objectType"`
	Model              string                `json:"model"`
	Scale              geom.Vec3             `json:"scale"`
	Color              Color                 `json:"color"`
	BelievabilityScore float64               `json:"believabilityScore"`
	Restrictions       []MovementRestriction `json:"restrictions,omitempty"`
	Duration           time.Duration         `json:"duration,omitempty"`
}

// EffectiveDuration returns the candidate's duration, falling back to the
// default when none was generated.
func (c Candidate) EffectiveDuration() time.Duration {
	if c.Duration > 0 {
		return c.Duration
	}
	return DefaultCandidateDuration
}

// CloneRestrictions copies the restriction list so attached metadata never
// aliases the candidate held inside transformation state.
func (c Candidate) CloneRestrictions() []MovementRestriction {
	if len(c.Restrictions) == 0 {
		return nil
	}
	return append([]MovementRestriction(nil), c.Restrictions...)
}
