package server

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/disguise"
	"hide-and-seek/server/internal/environment"
	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
	"hide-and-seek/server/internal/telemetry"
	"hide-and-seek/server/logging"
)

// Effect is a transient visual broadcast to clients, spawned around
// transform and revert transitions.
type Effect struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Start    int64  `json:"start"`
	Duration int64  `json:"duration"`
}

type effectState struct {
	Effect
	expiresAt time.Time
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteJSON sends a direct message to this subscriber, serialized against
// concurrent broadcasts.
func (s *subscriber) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// HubConfig collects the knobs the hub forwards into its subsystems.
type HubConfig struct {
	TickRate             int
	PropCount            int
	MaxActiveCamouflages int
	FadeOut              time.Duration
	FadeIn               time.Duration
	CacheTTL             time.Duration
	MaxCacheSize         int
	MaintenanceInterval  time.Duration
	Clock                sched.Clock
	Logger               telemetry.Logger
}

// DefaultHubConfig returns the stock configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		TickRate:  defaultTickRate,
		PropCount: defaultProps,
	}
}

// Hub owns all live players, their websocket subscribers, the prop set,
// and the camouflage subsystem. Every mutation of game state happens under
// its mutex, which is what makes the camouflage core's cooperative model
// hold: the scheduler only advances inside the tick loop.
type Hub struct {
	mu          sync.Mutex
	cfg         HubConfig
	clock       sched.Clock
	scheduler   *sched.Scheduler
	logger      telemetry.Logger
	players     map[string]*playerState
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	props       []environment.Prop
	effects     []*effectState
	nextEffect  uint64
	currentTick uint64

	transformer *camouflage.Transformer
	manager     *camouflage.Manager
	telemetry   *telemetryCounters
}

// NewHub wires a hub and its camouflage subsystem to the given publisher.
func NewHub(cfg HubConfig, publisher logging.Publisher) *Hub {
	if cfg.TickRate <= 0 {
		cfg.TickRate = defaultTickRate
	}
	if cfg.PropCount <= 0 {
		cfg.PropCount = defaultProps
	}
	if cfg.Clock == nil {
		cfg.Clock = sched.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	h := &Hub{
		cfg:         cfg,
		clock:       cfg.Clock,
		scheduler:   sched.New(),
		logger:      cfg.Logger,
		players:     make(map[string]*playerState),
		subscribers: make(map[string]*subscriber),
		effects:     make([]*effectState, 0),
		telemetry:   &telemetryCounters{},
	}
	h.props = generateProps(cfg.PropCount)

	tickSource := func() uint64 { return h.currentTick }

	analyzer := environment.New(environment.Config{}, environment.PropSourceFunc(h.propsNear), h.clock)
	generator := disguise.New(disguise.Config{}, nil, h.clock)
	h.transformer = camouflage.NewTransformer(camouflage.TransformerConfig{
		MaxActive:     cfg.MaxActiveCamouflages,
		FadeOut:       cfg.FadeOut,
		FadeIn:        cfg.FadeIn,
		EffectSpawner: h.spawnTransitionEffect,
		TickSource:    tickSource,
	}, h.clock, h.scheduler, publisher)
	h.manager = camouflage.NewManager(camouflage.ManagerConfig{
		CacheTTL:            cfg.CacheTTL,
		MaxCacheSize:        cfg.MaxCacheSize,
		MaintenanceInterval: cfg.MaintenanceInterval,
		TickSource:          tickSource,
	}, h.clock, h.scheduler, publisher, analyzer, generator, h.transformer)

	h.wireTelemetry()
	return h
}

func (h *Hub) wireTelemetry() {
	h.manager.Activated().Subscribe(func(camouflage.ActivatedEvent) {
		h.telemetry.activations.Add(1)
	})
	h.manager.Failed().Subscribe(func(camouflage.FailedEvent) {
		h.telemetry.failedActivations.Add(1)
	})
	h.manager.Errored().Subscribe(func(camouflage.ErrorEvent) {
		h.telemetry.containedErrors.Add(1)
	})
	h.transformer.Ended().Subscribe(func(ev camouflage.EndedEvent) {
		switch ev.Reason {
		case camouflage.EndReasonAuto:
			h.telemetry.autoReverts.Add(1)
		case camouflage.EndReasonForced:
			h.telemetry.forcedReverts.Add(1)
		default:
			h.telemetry.manualReverts.Add(1)
		}
	})
}

// Join registers a new player and returns the latest snapshot.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	playerID := fmt.Sprintf("player-%d", id)
	now := h.clock.Now()

	state := &playerState{
		Player: Player{
			ID:       playerID,
			Position: geom.Vec3{X: spawnX, Z: spawnZ},
		},
		mesh:          NewPlayerMesh(),
		lastHeartbeat: now,
	}

	h.mu.Lock()
	h.players[playerID] = state
	h.transformer.RegisterPlayer(playerID, state.mesh)
	h.pruneEffectsLocked(now)
	players, effects := h.snapshotLocked(now)
	h.mu.Unlock()

	go h.broadcastState(players, effects)

	return joinResponse{Ver: ProtocolVersion, ID: playerID, Players: players, Props: h.props, Effects: effects}
}

// Subscribe associates a WebSocket connection with an existing player.
func (h *Hub) Subscribe(playerID string, conn *websocket.Conn) (*subscriber, []Player, []Effect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return nil, nil, nil, false
	}
	state.lastHeartbeat = h.clock.Now()

	if existing, ok := h.subscribers[playerID]; ok {
		existing.conn.Close()
	}

	sub := &subscriber{conn: conn}
	h.subscribers[playerID] = sub
	now := h.clock.Now()
	h.pruneEffectsLocked(now)
	players, effects := h.snapshotLocked(now)
	return sub, players, effects, true
}

// Disconnect removes a player, reverting any active disguise first.
func (h *Hub) Disconnect(playerID string) ([]Player, []Effect) {
	h.mu.Lock()
	sub, subOK := h.subscribers[playerID]
	if subOK {
		delete(h.subscribers, playerID)
	}

	_, playerOK := h.players[playerID]
	if playerOK {
		// Forces a synchronous revert; the manager drops the session
		// through its ended subscription.
		h.transformer.UnregisterPlayer(playerID)
		delete(h.players, playerID)
	}

	var players []Player
	var effects []Effect
	if playerOK {
		now := h.clock.Now()
		h.pruneEffectsLocked(now)
		players, effects = h.snapshotLocked(now)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if !playerOK {
		return nil, nil
	}
	return players, effects
}

// UpdateIntent stores the latest movement vector for a player.
func (h *Hub) UpdateIntent(playerID string, dx, dz float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return false
	}
	length := math.Hypot(dx, dz)
	if length > 1 {
		dx /= length
		dz /= length
	}
	state.intentX = dx
	state.intentZ = dz
	state.lastInput = h.clock.Now()
	return true
}

// UpdateHeartbeat records the latest heartbeat and RTT for a player.
func (h *Hub) UpdateHeartbeat(playerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return 0, false
	}
	state.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	return state.lastRTT, true
}

// Hide activates camouflage for a player at their current position.
func (h *Hub) Hide(playerID string, preferredType camouflage.ObjectType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.players[playerID]
	if !ok {
		return false
	}
	return h.manager.ActivateCamouflage(playerID, state.Position, state.mesh, preferredType)
}

// Unhide manually deactivates a player's camouflage.
func (h *Hub) Unhide(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.players[playerID]; !ok {
		return false
	}
	return h.manager.DeactivateCamouflage(playerID)
}

// Reveal force-ends a disguise, used when a seeker tags a hidden player.
func (h *Hub) Reveal(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.manager.ForceDeactivate(playerID)
}

// Extend adds time to a player's active disguise.
func (h *Hub) Extend(playerID string, extra time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manager.ExtendCamouflageTime(playerID, extra)
}

// SetSkill updates a player's hiding skill level.
func (h *Hub) SetSkill(playerID string, level int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.players[playerID]; !ok {
		return false
	}
	h.manager.UpdatePlayerSkill(playerID, level)
	return true
}

// spawnTransitionEffect runs inside the transformer's pipeline, already
// under the hub mutex.
func (h *Hub) spawnTransitionEffect(playerID string, kind camouflage.EffectKind) {
	now := h.clock.Now()
	h.nextEffect++
	effectType := "camouflage-burst"
	if kind == camouflage.EffectRevert {
		effectType = "reveal-burst"
	}
	h.effects = append(h.effects, &effectState{
		Effect: Effect{
			ID:       fmt.Sprintf("effect-%d", h.nextEffect),
			Type:     effectType,
			PlayerID: playerID,
			Start:    now.UnixMilli(),
			Duration: effectBurstDuration.Milliseconds(),
		},
		expiresAt: now.Add(effectBurstDuration),
	})
}

// advance runs one simulation step and returns snapshots plus stale
// subscribers to close.
func (h *Hub) advance(now time.Time, dt float64) ([]Player, []Effect, []*subscriber) {
	h.mu.Lock()

	h.currentTick++

	toClose := make([]*subscriber, 0)
	for id, state := range h.players {
		if now.Sub(state.lastHeartbeat) > disconnectAfter {
			if sub, ok := h.subscribers[id]; ok {
				toClose = append(toClose, sub)
				delete(h.subscribers, id)
			}
			h.transformer.UnregisterPlayer(id)
			delete(h.players, id)
			h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
			continue
		}
		h.movePlayerLocked(state, dt)
	}

	// Fires due auto-reverts and the manager's maintenance sweep.
	h.scheduler.Advance(now)

	h.pruneEffectsLocked(now)
	players, effects := h.snapshotLocked(now)
	h.mu.Unlock()

	return players, effects, toClose
}

func (h *Hub) movePlayerLocked(state *playerState, dt float64) {
	if state.intentX == 0 && state.intentZ == 0 {
		return
	}
	scale := state.movementScale()
	if scale <= 0 {
		return
	}
	state.Position.X = clampCoord(state.Position.X+state.intentX*moveSpeed*scale*dt, 0, worldSize)
	state.Position.Z = clampCoord(state.Position.Z+state.intentZ*moveSpeed*scale*dt, 0, worldSize)
}

func clampCoord(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunSimulation drives the fixed-rate tick loop until stop closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(h.cfg.TickRate))
	defer ticker.Stop()

	last := h.clock.Now()
	for {
		select {
		case <-stop:
			h.mu.Lock()
			h.manager.Dispose()
			h.mu.Unlock()
			return
		case <-ticker.C:
			now := h.clock.Now()
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(h.cfg.TickRate)
			}
			last = now

			tickStart := time.Now()
			players, effects, toClose := h.advance(now, dt)
			h.telemetry.RecordTickDuration(time.Since(tickStart))

			for _, sub := range toClose {
				sub.conn.Close()
			}
			h.broadcastState(players, effects)
		}
	}
}

// DiagnosticsSnapshot exposes per-player heartbeat data.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsPlayer {
	h.mu.Lock()
	defer h.mu.Unlock()

	players := make([]diagnosticsPlayer, 0, len(h.players))
	for id, state := range h.players {
		players = append(players, diagnosticsPlayer{
			ID:            id,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
			Camouflaged:   h.manager.IsPlayerCamouflaged(id),
		})
	}
	return players
}

// TelemetrySnapshot exposes hub counters plus camouflage cache stats.
func (h *Hub) TelemetrySnapshot() map[string]any {
	h.mu.Lock()
	cache := h.manager.CacheStats()
	sessions := h.manager.ActiveSessionCount()
	h.mu.Unlock()

	return map[string]any{
		"counters":       h.telemetry.snapshot(),
		"cache":          cache,
		"activeSessions": sessions,
	}
}

func (h *Hub) pruneEffectsLocked(now time.Time) {
	kept := h.effects[:0]
	for _, eff := range h.effects {
		if now.Before(eff.expiresAt) {
			kept = append(kept, eff)
		}
	}
	h.effects = kept
}

// snapshotLocked copies players and effects while holding the mutex.
func (h *Hub) snapshotLocked(now time.Time) ([]Player, []Effect) {
	players := make([]Player, 0, len(h.players))
	for id, state := range h.players {
		view := state.snapshot()
		view.Camouflaged = h.manager.IsPlayerCamouflaged(id)
		if view.Camouflaged {
			if session, ok := h.manager.Session(id); ok {
				view.Disguise = string(session.Candidate.ObjectType)
			}
			view.RemainingMs = h.transformer.RemainingTransformationTime(id).Milliseconds()
		}
		players = append(players, view)
	}
	effects := make([]Effect, 0, len(h.effects))
	for _, eff := range h.effects {
		if now.Before(eff.expiresAt) {
			effects = append(effects, eff.Effect)
		}
	}
	return players, effects
}

// broadcastState sends the latest snapshot to every subscriber.
func (h *Hub) broadcastState(players []Player, effects []Effect) {
	if players == nil {
		h.mu.Lock()
		players, effects = h.snapshotLocked(h.clock.Now())
		h.mu.Unlock()
	}

	h.mu.Lock()
	tick := h.currentTick
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	msg := stateMessage{
		Ver:        ProtocolVersion,
		Type:       "state",
		Players:    players,
		Effects:    effects,
		Tick:       tick,
		ServerTime: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Printf("failed to marshal state message: %v", err)
		return
	}
	h.telemetry.RecordBroadcast(len(data)*len(subs), len(players)+len(effects))

	for id, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			players, effects := h.Disconnect(id)
			if players != nil {
				go h.broadcastState(players, effects)
			}
		}
	}
}

// Camouflage exposes the manager for hosts embedding the hub.
func (h *Hub) Camouflage() *camouflage.Manager {
	return h.manager
}
