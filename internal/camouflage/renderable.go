package camouflage

import "time"

// Renderable is the opaque visual resource a caller registers for a player.
// The transformer mutates it in place during transform and revert but never
// creates or destroys it. Implementations animate fades on their own; a
// FadeOpacity call records the target and returns without blocking.
type Renderable interface {
	// Appearance returns an independently owned snapshot of the current
	// visual state.
	Appearance() Appearance
	// ApplyAppearance swaps geometry, materials, scale, and model to match.
	ApplyAppearance(Appearance) error
	// FadeOpacity requests a fade to target over the given duration.
	FadeOpacity(target float64, over time.Duration) error
	// SetMetadata attaches externally readable metadata to the resource.
	SetMetadata(key string, value any)
	// RemoveMetadata detaches previously attached metadata.
	RemoveMetadata(key string)
}
