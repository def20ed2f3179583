package server

import (
	"time"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
)

var defaultAvatarScale = geom.Vec3{X: 1, Y: 1, Z: 1}

// Player is the replicated view of a connected player.
type Player struct {
	ID          string    `json:"id"`
	Position    geom.Vec3 `json:"position"`
	Model       string    `json:"model"`
	Opacity     float64   `json:"opacity"`
	Camouflaged bool      `json:"camouflaged"`
	Disguise    string    `json:"disguise,omitempty"`
	RemainingMs int64     `json:"remainingMs,omitempty"`
}

type playerState struct {
	Player
	mesh          *Mesh
	intentX       float64
	intentZ       float64
	lastInput     time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// snapshot copies the replicated fields, refreshing visuals from the mesh.
func (p *playerState) snapshot() Player {
	view := p.Player
	appearance := p.mesh.Appearance()
	view.Model = appearance.Model
	view.Opacity = appearance.Opacity
	return view
}

// movementScale resolves the player's restriction metadata into a speed
// multiplier. The transformer attaches restrictions; enforcement lives
// here, outside the camouflage core.
func (p *playerState) movementScale() float64 {
	raw, ok := p.mesh.Metadata(camouflage.MetadataMovementRestrictions)
	if !ok {
		return 1
	}
	restrictions, ok := raw.([]camouflage.MovementRestriction)
	if !ok {
		return 1
	}
	scale := 1.0
	for _, restriction := range restrictions {
		switch restriction.Kind {
		case camouflage.RestrictionRooted:
			return 0
		case camouflage.RestrictionSpeedFactor:
			if restriction.Factor >= 0 && restriction.Factor < scale {
				scale = restriction.Factor
			}
		}
	}
	return scale
}
