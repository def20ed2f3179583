package camouflage

import (
	"context"
	"fmt"
	"time"

	"hide-and-seek/server/internal/events"
	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
	"hide-and-seek/server/logging"
	loggingcamouflage "hide-and-seek/server/logging/camouflage"
)

// Session ties a player to their active disguise and the analysis that
// produced it. Exactly one session exists per camouflaged player.
type Session struct {
	PlayerID  string
	StartTime time.Time
	Candidate Candidate
	State     TransformationState
	Analysis  AnalysisResult
}

func (s Session) clone() Session {
	cloned := s
	cloned.Candidate.Restrictions = s.Candidate.CloneRestrictions()
	cloned.State = s.State.clone()
	cloned.Analysis = s.Analysis.Clone()
	return cloned
}

// ManagerConfig tunes the manager. Zero values fall back to the documented
// defaults.
type ManagerConfig struct {
	CacheTTL            time.Duration
	MaxCacheSize        int
	QuantizeStep        float64
	MaintenanceInterval time.Duration
	TickSource          func() uint64
}

const (
	defaultCacheTTL            = 30 * time.Second
	defaultMaxCacheSize        = 50
	defaultQuantizeStep        = 0.5
	defaultMaintenanceInterval = 5 * time.Second
)

// Manager orchestrates the activate/deactivate flow: analyzer, generator,
// transformer, session registry, analysis cache, and the maintenance sweep.
// Like the transformer it is cooperative and must be driven from the
// scheduler's goroutine.
type Manager struct {
	cfg       ManagerConfig
	clock     sched.Clock
	scheduler *sched.Scheduler
	publisher logging.Publisher

	analyzer    Analyzer
	generator   Generator
	transformer *Transformer

	sessions map[string]*Session
	cache    *analysisCache
	skills   map[string]int

	maintenance *sched.Task
	endedSub    *events.Subscription
	disposed    bool

	activated   *events.Topic[ActivatedEvent]
	deactivated *events.Topic[DeactivatedEvent]
	failed      *events.Topic[FailedEvent]
	errored     *events.Topic[ErrorEvent]
}

// NewManager wires a manager to its collaborators and starts the periodic
// maintenance task on the supplied scheduler.
func NewManager(cfg ManagerConfig, clock sched.Clock, scheduler *sched.Scheduler, publisher logging.Publisher, analyzer Analyzer, generator Generator, transformer *Transformer) *Manager {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = defaultMaxCacheSize
	}
	if cfg.QuantizeStep <= 0 {
		cfg.QuantizeStep = defaultQuantizeStep
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = defaultMaintenanceInterval
	}
	if clock == nil {
		clock = sched.SystemClock{}
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	m := &Manager{
		cfg:         cfg,
		clock:       clock,
		scheduler:   scheduler,
		publisher:   publisher,
		analyzer:    analyzer,
		generator:   generator,
		transformer: transformer,
		sessions:    make(map[string]*Session),
		cache:       newAnalysisCache(cfg.CacheTTL, cfg.MaxCacheSize),
		skills:      make(map[string]int),
		activated:   events.NewTopic[ActivatedEvent](),
		deactivated: events.NewTopic[DeactivatedEvent](),
		failed:      events.NewTopic[FailedEvent](),
		errored:     events.NewTopic[ErrorEvent](),
	}

	if transformer != nil {
		m.endedSub = transformer.Ended().Subscribe(m.handleTransformationEnded)
	}
	m.scheduleMaintenance()
	return m
}

// Activated exposes session activation notifications.
func (m *Manager) Activated() *events.Topic[ActivatedEvent] { return m.activated }

// Deactivated exposes session removal notifications.
func (m *Manager) Deactivated() *events.Topic[DeactivatedEvent] { return m.deactivated }

// Failed exposes structured activation failures.
func (m *Manager) Failed() *events.Topic[FailedEvent] { return m.failed }

// Errored exposes contained unexpected failures.
func (m *Manager) Errored() *events.Topic[ErrorEvent] { return m.errored }

// ActivateCamouflage runs the end-to-end activation flow. Every failure
// path returns false; nothing escapes this method, panics included.
func (m *Manager) ActivateCamouflage(playerID string, position geom.Vec3, renderable Renderable, preferredType ObjectType) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.containPanic(playerID, r)
			ok = false
		}
	}()

	if m.disposed || playerID == "" || renderable == nil {
		return false
	}
	if _, exists := m.sessions[playerID]; exists {
		// Activation while disguised is rejected, never queued.
		return false
	}

	m.transformer.RegisterPlayer(playerID, renderable)

	analysis, fromCache := m.analysisAt(position)
	if len(analysis.Spots) == 0 {
		return m.fail(playerID, FailureNoOptions)
	}

	candidates := m.generator.Generate(position)
	if len(candidates) == 0 {
		return m.fail(playerID, FailureGenerationFailed)
	}

	chosen := candidates[0]
	if preferredType != "" {
		for _, candidate := range candidates {
			if candidate.ObjectType == preferredType {
				chosen = candidate
				break
			}
		}
	}

	if !m.transformer.TransformPlayer(playerID, chosen) {
		return m.fail(playerID, FailureTransformationFailed)
	}

	state, _ := m.transformer.TransformationState(playerID)
	session := &Session{
		PlayerID:  playerID,
		StartTime: m.clock.Now(),
		Candidate: chosen,
		State:     state,
		Analysis:  analysis,
	}
	m.sessions[playerID] = session

	loggingcamouflage.Activated(context.Background(), m.publisher, m.tick(), logging.PlayerRef(playerID), loggingcamouflage.ActivatedPayload{
		ObjectType:    string(chosen.ObjectType),
		Believability: chosen.BelievabilityScore,
		DurationMs:    chosen.EffectiveDuration().Milliseconds(),
		FromCache:     fromCache,
	})
	m.activated.Publish(ActivatedEvent{Session: session.clone()})
	return true
}

// DeactivateCamouflage reverts and removes the player's session. Without a
// session it is a false no-op; on revert failure the session stays intact
// so the caller may retry.
func (m *Manager) DeactivateCamouflage(playerID string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.containPanic(playerID, r)
			ok = false
		}
	}()

	if _, exists := m.sessions[playerID]; !exists {
		return false
	}
	// Success removes the session through the ended subscription.
	return m.transformer.RevertTransformation(playerID)
}

// ForceDeactivate removes the session regardless of revert pipeline
// outcome, used for discovery by a seeker and during disposal.
func (m *Manager) ForceDeactivate(playerID string) {
	if _, exists := m.sessions[playerID]; !exists {
		return
	}
	if !m.transformer.CancelTransformation(playerID) {
		// Nothing active in the transformer; drop the stale session.
		m.removeSession(playerID, EndReasonForced)
	}
}

// IsPlayerCamouflaged reports whether the player holds a session with an
// active transformation.
func (m *Manager) IsPlayerCamouflaged(playerID string) bool {
	_, exists := m.sessions[playerID]
	return exists && m.transformer.IsPlayerTransformed(playerID)
}

// Session returns a copy of the player's session record. The transformation
// state is resolved from the transformer, so reschedules (extensions) are
// reflected rather than the deadline captured at activation.
func (m *Manager) Session(playerID string) (Session, bool) {
	session, exists := m.sessions[playerID]
	if !exists {
		return Session{}, false
	}
	cloned := session.clone()
	if state, ok := m.transformer.TransformationState(playerID); ok {
		cloned.State = state
	}
	return cloned, true
}

// ActiveSessionCount reports how many sessions are registered.
func (m *Manager) ActiveSessionCount() int {
	return len(m.sessions)
}

// ExtendCamouflageTime adds extra to the player's remaining time. The new
// total duration is remaining + extra, measured from now.
func (m *Manager) ExtendCamouflageTime(playerID string, extra time.Duration) bool {
	if _, exists := m.sessions[playerID]; !exists {
		return false
	}
	remaining := m.transformer.RemainingTransformationTime(playerID)
	return m.transformer.UpdateTransformationDuration(playerID, remaining+extra)
}

// CamouflageOptions returns the ranked candidate list for a position,
// reusing cached analysis when available. An empty environment yields nil.
func (m *Manager) CamouflageOptions(position geom.Vec3) []Candidate {
	analysis, _ := m.analysisAt(position)
	if len(analysis.Spots) == 0 {
		return nil
	}
	return m.generator.Generate(position)
}

// BestCamouflageOption returns the top-ranked candidate, or nil.
func (m *Manager) BestCamouflageOption(position geom.Vec3) *Candidate {
	options := m.CamouflageOptions(position)
	if len(options) == 0 {
		return nil
	}
	best := options[0]
	return &best
}

// CamouflageOptionsByType filters generation to one object type.
func (m *Manager) CamouflageOptionsByType(position geom.Vec3, objectType ObjectType) []Candidate {
	analysis, _ := m.analysisAt(position)
	if len(analysis.Spots) == 0 {
		return nil
	}
	return m.generator.GenerateByType(position, objectType)
}

// CamouflageOptionsByDifficulty filters generation to one difficulty band.
func (m *Manager) CamouflageOptionsByDifficulty(position geom.Vec3, difficulty Difficulty) []Candidate {
	analysis, _ := m.analysisAt(position)
	if len(analysis.Spots) == 0 {
		return nil
	}
	return m.generator.GenerateByDifficulty(position, difficulty)
}

// UpdatePlayerSkill records the player's skill level and forwards it to the
// generator. The generator knob is global: the last write wins across
// players. See DESIGN.md before changing this.
func (m *Manager) UpdatePlayerSkill(playerID string, level int) {
	if playerID == "" {
		return
	}
	m.skills[playerID] = level
	m.generator.SetSkillLevel(level)
}

// PlayerSkill returns the locally stored skill level for a player.
func (m *Manager) PlayerSkill(playerID string) int {
	return m.skills[playerID]
}

// CacheStats exposes analysis cache counters for diagnostics.
func (m *Manager) CacheStats() CacheStats {
	return m.cache.stats()
}

// RunMaintenance performs one sweep: expire overdue sessions, evict stale
// cache entries, and let the generator purge its own caches. Normally
// driven by the scheduler; exposed for hosts that want to force a sweep.
func (m *Manager) RunMaintenance(now time.Time) {
	if m.disposed {
		return
	}
	for playerID := range m.sessions {
		if m.transformer.IsPlayerTransformed(playerID) && m.transformer.RemainingTransformationTime(playerID) > 0 {
			continue
		}
		// Overdue or orphaned: force the revert and always drop the
		// session so nothing stays stuck.
		if !m.transformer.CancelTransformation(playerID) {
			m.removeSession(playerID, EndReasonAuto)
		}
	}
	m.cache.evictExpired(now)
	m.generator.PurgeExpired()
}

// Dispose stops maintenance, force-deactivates every session, disposes
// collaborators that support it, and clears internal collections.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	for playerID := range m.sessions {
		m.ForceDeactivate(playerID)
	}
	m.disposed = true
	if m.maintenance != nil {
		m.maintenance.Cancel()
		m.maintenance = nil
	}
	if m.endedSub != nil {
		m.endedSub.Unsubscribe()
		m.endedSub = nil
	}
	disposeCollaborator(m.analyzer)
	disposeCollaborator(m.generator)
	m.sessions = make(map[string]*Session)
	m.skills = make(map[string]int)
	m.cache.clear()
}

// Disposer is implemented by collaborators that hold releasable resources.
type Disposer interface {
	Dispose()
}

func disposeCollaborator(candidate any) {
	if d, ok := candidate.(Disposer); ok {
		d.Dispose()
	}
}

func (m *Manager) handleTransformationEnded(ev EndedEvent) {
	m.removeSession(ev.PlayerID, ev.Reason)
}

func (m *Manager) removeSession(playerID string, reason EndReason) {
	if _, exists := m.sessions[playerID]; !exists {
		return
	}
	delete(m.sessions, playerID)
	now := m.clock.Now()
	loggingcamouflage.Deactivated(context.Background(), m.publisher, m.tick(), logging.PlayerRef(playerID), loggingcamouflage.DeactivatedPayload{Reason: string(reason)})
	m.deactivated.Publish(DeactivatedEvent{PlayerID: playerID, Reason: reason, At: now})
}

// analysisAt returns the analysis for a position, served from the quantized
// cache when fresh and stored there when recomputed.
func (m *Manager) analysisAt(position geom.Vec3) (AnalysisResult, bool) {
	key := position.QuantizedKey(m.cfg.QuantizeStep)
	now := m.clock.Now()
	if cached, ok := m.cache.get(key, now); ok {
		return cached, true
	}
	result := m.analyzer.Analyze(position)
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = now
	}
	m.cache.put(key, result)
	return result, false
}

func (m *Manager) fail(playerID string, reason FailureReason) bool {
	loggingcamouflage.Failed(context.Background(), m.publisher, m.tick(), logging.PlayerRef(playerID), loggingcamouflage.FailedPayload{Reason: string(reason)})
	m.failed.Publish(FailedEvent{PlayerID: playerID, Reason: reason})
	return false
}

func (m *Manager) containPanic(playerID string, recovered any) {
	err, isErr := recovered.(error)
	if !isErr {
		err = fmt.Errorf("panic: %v", recovered)
	}
	loggingcamouflage.ActivationError(context.Background(), m.publisher, m.tick(), logging.PlayerRef(playerID), loggingcamouflage.ErrorPayload{Error: err.Error()})
	m.errored.Publish(ErrorEvent{PlayerID: playerID, Err: err})
}

func (m *Manager) scheduleMaintenance() {
	if m.scheduler == nil {
		return
	}
	m.maintenance = m.scheduler.After(m.clock.Now(), m.cfg.MaintenanceInterval, func(now time.Time) {
		m.RunMaintenance(now)
		if !m.disposed {
			m.scheduleMaintenance()
		}
	})
}

func (m *Manager) tick() uint64 {
	if m.cfg.TickSource == nil {
		return 0
	}
	return m.cfg.TickSource()
}
