package camouflage

import (
	"errors"
	"time"

	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
)

// manualClock is a settable clock shared by a test's scheduler and
// components.
type manualClock struct {
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// fakeRenderable records every mutation and can be told to fail a step.
type fakeRenderable struct {
	appearance Appearance
	metadata   map[string]any

	applyCalls []Appearance
	fadeCalls  []fadeCall

	failApply error
	failFade  error
}

type fadeCall struct {
	target float64
	over   time.Duration
}

func newFakeRenderable(appearance Appearance) *fakeRenderable {
	return &fakeRenderable{
		appearance: appearance.Clone(),
		metadata:   make(map[string]any),
	}
}

func (r *fakeRenderable) Appearance() Appearance {
	return r.appearance.Clone()
}

func (r *fakeRenderable) ApplyAppearance(appearance Appearance) error {
	if r.failApply != nil {
		return r.failApply
	}
	r.applyCalls = append(r.applyCalls, appearance.Clone())
	r.appearance = appearance.Clone()
	return nil
}

func (r *fakeRenderable) FadeOpacity(target float64, over time.Duration) error {
	if r.failFade != nil {
		return r.failFade
	}
	r.fadeCalls = append(r.fadeCalls, fadeCall{target: target, over: over})
	r.appearance.Opacity = target
	return nil
}

func (r *fakeRenderable) SetMetadata(key string, value any) {
	r.metadata[key] = value
}

func (r *fakeRenderable) RemoveMetadata(key string) {
	delete(r.metadata, key)
}

func baseAppearance() Appearance {
	return Appearance{
		Model:   "avatar_default",
		Scale:   geom.Vec3{X: 1, Y: 1, Z: 1},
		Color:   Color{R: 0.2, G: 0.55, B: 0.85},
		Opacity: 1,
		Materials: []Material{
			{Name: "skin", Color: Color{R: 0.2, G: 0.55, B: 0.85}, Opacity: 1},
		},
		Geometry: Geometry{Kind: GeometryMesh, MeshRef: "avatar_default"},
	}
}

func boxCandidate() Candidate {
	return Candidate{
		ObjectType:         ObjectBox,
		Model:              "prop_crate",
		Scale:              geom.Vec3{X: 1.2, Y: 1.2, Z: 1.2},
		Color:              Color{R: 0.55, G: 0.4, B: 0.2},
		BelievabilityScore: 0.9,
		Duration:           5 * time.Second,
	}
}

// newTestTransformer builds a transformer on a manual clock and fresh
// scheduler.
func newTestTransformer(cfg TransformerConfig) (*Transformer, *manualClock, *sched.Scheduler) {
	clock := newManualClock()
	scheduler := sched.New()
	return NewTransformer(cfg, clock, scheduler, nil), clock, scheduler
}

var errStep = errors.New("step failed")
