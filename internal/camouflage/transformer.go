package camouflage

import (
	"context"
	"fmt"
	"time"

	"hide-and-seek/server/internal/events"
	"hide-and-seek/server/internal/sched"
	"hide-and-seek/server/logging"
	loggingcamouflage "hide-and-seek/server/logging/camouflage"
)

// TransformationState tracks one player's active disguise. At most one
// exists per player at any instant.
type TransformationState struct {
	PlayerID              string
	Candidate             Candidate
	OriginalAppearance    Appearance
	TransformedAppearance Appearance
	StartTime             time.Time
	EndTime               time.Time
	Restrictions          []MovementRestriction
}

func (s TransformationState) clone() TransformationState {
	cloned := s
	cloned.OriginalAppearance = s.OriginalAppearance.Clone()
	cloned.TransformedAppearance = s.TransformedAppearance.Clone()
	cloned.Candidate.Restrictions = s.Candidate.CloneRestrictions()
	if len(s.Restrictions) > 0 {
		cloned.Restrictions = append([]MovementRestriction(nil), s.Restrictions...)
	}
	return cloned
}

// EffectKind selects which fire-and-forget visual accompanies a transition.
type EffectKind string

const (
	EffectTransform EffectKind = "transform"
	EffectRevert    EffectKind = "revert"
)

// EffectSpawner spawns a transition visual. Calls never gate the pipeline;
// failures and panics inside the spawner are contained and ignored.
type EffectSpawner func(playerID string, kind EffectKind)

// TransformerConfig tunes the transformer. Zero values fall back to the
// documented defaults.
type TransformerConfig struct {
	// MaxActive caps simultaneously active transformations system-wide.
	MaxActive int
	// FadeOut and FadeIn are the pipeline's fade durations.
	FadeOut time.Duration
	FadeIn  time.Duration
	// EffectSpawner, when set, spawns transition visuals.
	EffectSpawner EffectSpawner
	// TickSource, when set, stamps log events with the simulation tick.
	TickSource func() uint64
}

const (
	defaultMaxActive = 1
	defaultFade      = 500 * time.Millisecond

	shimmerThreshold = 0.8
	shimmerIntensity = 0.15

	baseTargetOpacity    = 0.7
	believabilityOpacity = 0.3
)

// Transformer owns every registered player's appearance and executes the
// transform/revert transitions. It is cooperative: all methods must be
// called from the goroutine driving the scheduler.
type Transformer struct {
	cfg       TransformerConfig
	clock     sched.Clock
	scheduler *sched.Scheduler
	publisher logging.Publisher

	players map[string]*transformEntry

	started *events.Topic[StartedEvent]
	ended   *events.Topic[EndedEvent]
}

type transformEntry struct {
	renderable Renderable
	// pending marks a transform pipeline that has passed its precondition
	// checks but not yet registered state, closing the double-transform
	// window.
	pending    bool
	state      *TransformationState
	revertTask *sched.Task
}

// NewTransformer constructs a transformer bound to the given clock and
// scheduler. publisher may be nil.
func NewTransformer(cfg TransformerConfig, clock sched.Clock, scheduler *sched.Scheduler, publisher logging.Publisher) *Transformer {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = defaultMaxActive
	}
	if cfg.FadeOut <= 0 {
		cfg.FadeOut = defaultFade
	}
	if cfg.FadeIn <= 0 {
		cfg.FadeIn = defaultFade
	}
	if clock == nil {
		clock = sched.SystemClock{}
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Transformer{
		cfg:       cfg,
		clock:     clock,
		scheduler: scheduler,
		publisher: publisher,
		players:   make(map[string]*transformEntry),
		started:   events.NewTopic[StartedEvent](),
		ended:     events.NewTopic[EndedEvent](),
	}
}

// Started exposes per-transformation start notifications.
func (t *Transformer) Started() *events.Topic[StartedEvent] {
	return t.started
}

// Ended exposes per-transformation end notifications.
func (t *Transformer) Ended() *events.Topic[EndedEvent] {
	return t.ended
}

// RegisterPlayer attaches a renderable handle for a player. Re-registering
// overwrites the handle and keeps existing bookkeeping.
func (t *Transformer) RegisterPlayer(id string, renderable Renderable) {
	if id == "" || renderable == nil {
		return
	}
	if entry, ok := t.players[id]; ok {
		entry.renderable = renderable
		return
	}
	t.players[id] = &transformEntry{renderable: renderable}
}

// UnregisterPlayer forces a synchronous revert of any active transformation,
// then drops the player's bookkeeping.
func (t *Transformer) UnregisterPlayer(id string) {
	entry, ok := t.players[id]
	if !ok {
		return
	}
	if entry.state != nil {
		t.revert(id, EndReasonForced, true)
	}
	delete(t.players, id)
}

// IsRegistered reports whether the player has a renderable attached.
func (t *Transformer) IsRegistered(id string) bool {
	_, ok := t.players[id]
	return ok
}

// TransformPlayer executes the full transform pipeline for a registered
// player. Precondition violations return false with no side effects.
func (t *Transformer) TransformPlayer(id string, candidate Candidate) bool {
	entry, ok := t.players[id]
	if !ok {
		return false
	}
	if entry.pending || entry.state != nil {
		return false
	}
	if t.activeCount() >= t.cfg.MaxActive {
		return false
	}

	entry.pending = true
	defer func() { entry.pending = false }()

	original := entry.renderable.Appearance().Clone()
	transformed := buildTransformedAppearance(original, candidate)

	if err := t.runTransformPipeline(id, entry, candidate, transformed); err != nil {
		t.logError(id, fmt.Errorf("transform pipeline: %w", err))
		return false
	}

	now := t.clock.Now()
	state := &TransformationState{
		PlayerID:              id,
		Candidate:             candidate,
		OriginalAppearance:    original,
		TransformedAppearance: transformed,
		StartTime:             now,
		EndTime:               now.Add(candidate.EffectiveDuration()),
		Restrictions:          candidate.CloneRestrictions(),
	}
	entry.state = state
	entry.revertTask = t.scheduleAutoRevert(id, state.EndTime)

	loggingcamouflage.TransformStarted(context.Background(), t.publisher, t.tick(), logging.PlayerRef(id), loggingcamouflage.TransformPayload{
		ObjectType: string(candidate.ObjectType),
		DurationMs: candidate.EffectiveDuration().Milliseconds(),
	})
	t.started.Publish(StartedEvent{PlayerID: id, State: state.clone()})
	return true
}

func (t *Transformer) runTransformPipeline(id string, entry *transformEntry, candidate Candidate, transformed Appearance) error {
	t.spawnEffect(id, EffectTransform)

	r := entry.renderable
	if err := r.FadeOpacity(0, t.cfg.FadeOut); err != nil {
		return fmt.Errorf("fade out: %w", err)
	}
	if err := r.ApplyAppearance(transformed.Clone()); err != nil {
		return fmt.Errorf("apply disguise: %w", err)
	}
	if err := r.FadeOpacity(transformed.Opacity, t.cfg.FadeIn); err != nil {
		return fmt.Errorf("fade in: %w", err)
	}
	r.SetMetadata(MetadataMovementRestrictions, candidate.CloneRestrictions())
	return nil
}

// RevertTransformation restores the player's original appearance. Returns
// false when nothing is active or the restore pipeline fails; in the
// failure case the state is kept so the caller may retry.
func (t *Transformer) RevertTransformation(id string) bool {
	return t.revert(id, EndReasonManual, false)
}

// CancelTransformation forces a revert regardless of pipeline errors, used
// by unregistration and forced-discovery callers. The transformation state
// is always removed.
func (t *Transformer) CancelTransformation(id string) bool {
	return t.revert(id, EndReasonForced, true)
}

func (t *Transformer) revert(id string, reason EndReason, force bool) bool {
	entry, ok := t.players[id]
	if !ok || entry.state == nil {
		return false
	}
	state := entry.state

	err := t.runRevertPipeline(id, entry, state)
	if err != nil && !force {
		t.logError(id, fmt.Errorf("revert pipeline: %w", err))
		return false
	}

	if entry.revertTask != nil {
		entry.revertTask.Cancel()
		entry.revertTask = nil
	}
	entry.state = nil

	if err != nil {
		// Forced path: the visual restore may be incomplete, but the slot
		// must never stay stuck.
		t.logError(id, fmt.Errorf("forced revert completed with error: %w", err))
	}

	loggingcamouflage.TransformEnded(context.Background(), t.publisher, t.tick(), logging.PlayerRef(id), loggingcamouflage.TransformPayload{
		ObjectType: string(state.Candidate.ObjectType),
		Reason:     string(reason),
	})
	t.ended.Publish(EndedEvent{PlayerID: id, Reason: reason, State: state.clone()})
	return err == nil
}

func (t *Transformer) runRevertPipeline(id string, entry *transformEntry, state *TransformationState) error {
	t.spawnEffect(id, EffectRevert)

	r := entry.renderable
	if err := r.FadeOpacity(0, t.cfg.FadeOut); err != nil {
		return fmt.Errorf("fade out: %w", err)
	}
	if err := r.ApplyAppearance(state.OriginalAppearance.Clone()); err != nil {
		return fmt.Errorf("restore appearance: %w", err)
	}
	if err := r.FadeOpacity(state.OriginalAppearance.Opacity, t.cfg.FadeIn); err != nil {
		return fmt.Errorf("fade in: %w", err)
	}
	r.RemoveMetadata(MetadataMovementRestrictions)
	return nil
}

// UpdateTransformationDuration reschedules the auto-revert to fire the
// given duration from now. Returns false when nothing is active.
func (t *Transformer) UpdateTransformationDuration(id string, d time.Duration) bool {
	entry, ok := t.players[id]
	if !ok || entry.state == nil {
		return false
	}
	if d < 0 {
		d = 0
	}
	entry.state.EndTime = t.clock.Now().Add(d)
	if entry.revertTask != nil {
		entry.revertTask.Cancel()
	}
	entry.revertTask = t.scheduleAutoRevert(id, entry.state.EndTime)
	return true
}

func (t *Transformer) scheduleAutoRevert(id string, at time.Time) *sched.Task {
	if t.scheduler == nil {
		return nil
	}
	return t.scheduler.At(at, func(time.Time) {
		// Auto-revert always clears the slot, even when the visual restore
		// partially fails.
		t.revert(id, EndReasonAuto, true)
	})
}

// IsPlayerTransformed reports whether a transformation is active.
func (t *Transformer) IsPlayerTransformed(id string) bool {
	entry, ok := t.players[id]
	return ok && entry.state != nil
}

// TransformationState returns a read-only snapshot of the player's active
// state.
func (t *Transformer) TransformationState(id string) (TransformationState, bool) {
	entry, ok := t.players[id]
	if !ok || entry.state == nil {
		return TransformationState{}, false
	}
	return entry.state.clone(), true
}

// RemainingTransformationTime returns max(0, endTime-now), or zero when
// nothing is active.
func (t *Transformer) RemainingTransformationTime(id string) time.Duration {
	entry, ok := t.players[id]
	if !ok || entry.state == nil {
		return 0
	}
	remaining := entry.state.EndTime.Sub(t.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ActiveCount reports how many transformations are currently active or
// mid-pipeline.
func (t *Transformer) ActiveCount() int {
	return t.activeCount()
}

func (t *Transformer) activeCount() int {
	count := 0
	for _, entry := range t.players {
		if entry.state != nil || entry.pending {
			count++
		}
	}
	return count
}

func (t *Transformer) spawnEffect(id string, kind EffectKind) {
	spawner := t.cfg.EffectSpawner
	if spawner == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logError(id, fmt.Errorf("effect spawner panicked: %v", r))
		}
	}()
	spawner(id, kind)
}

func (t *Transformer) tick() uint64 {
	if t.cfg.TickSource == nil {
		return 0
	}
	return t.cfg.TickSource()
}

func (t *Transformer) logError(id string, err error) {
	loggingcamouflage.ActivationError(context.Background(), t.publisher, t.tick(), logging.PlayerRef(id), loggingcamouflage.ErrorPayload{Error: err.Error()})
}

func buildTransformedAppearance(original Appearance, candidate Candidate) Appearance {
	opacity := clamp(baseTargetOpacity+candidate.BelievabilityScore*believabilityOpacity, 0, 1)

	material := Material{
		Name:    "camouflage",
		Color:   candidate.Color,
		Opacity: opacity,
	}
	if candidate.BelievabilityScore > shimmerThreshold {
		material.Emissive = candidate.Color
		material.EmissiveIntensity = shimmerIntensity
	}

	return Appearance{
		Model:     candidate.Model,
		Scale:     candidate.Scale,
		Color:     candidate.Color,
		Opacity:   opacity,
		Materials: []Material{material},
		Geometry:  geometryFor(candidate.ObjectType, original.Geometry),
	}
}

func geometryFor(objectType ObjectType, original Geometry) Geometry {
	switch objectType {
	case ObjectBox:
		return Geometry{Kind: GeometryBox}
	case ObjectSphere:
		return Geometry{Kind: GeometrySphere}
	case ObjectCylinder:
		return Geometry{Kind: GeometryCylinder}
	default:
		return original
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
