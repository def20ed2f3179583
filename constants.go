package server

import "time"

const (
	ProtocolVersion = 1

	writeWait         = 10 * time.Second
	defaultTickRate   = 15 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	worldSize    = 60.0 // square arena, world units per side
	moveSpeed    = 4.0  // world units per second
	spawnX       = worldSize / 2
	spawnZ       = worldSize / 2
	defaultProps = 24

	effectBurstDuration = 800 * time.Millisecond
)

// TickRate exposes the default simulation rate for diagnostics.
func TickRate() int {
	return defaultTickRate
}

// HeartbeatInterval exposes the heartbeat cadence for diagnostics.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
